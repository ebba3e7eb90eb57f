package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gookit/color"
	"golang.org/x/term"

	"github.com/lawnchairsociety/roomgen/internal/config"
	"github.com/lawnchairsociety/roomgen/internal/database"
	"github.com/lawnchairsociety/roomgen/internal/layout"
	"github.com/lawnchairsociety/roomgen/internal/layoutfile"
	"github.com/lawnchairsociety/roomgen/internal/logger"
	"github.com/lawnchairsociety/roomgen/internal/render"
)

func main() {
	configFile := flag.String("config", "data/roomgen.yaml", "Path to generator config YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	seed := flag.Int64("seed", 0, "Generation seed (overrides config; default: random based on current time)")
	outFile := flag.String("out", "", "Write the layout YAML here (overrides config)")
	dbFile := flag.String("db", "", "Store the layout in this SQLite database (overrides config)")
	showMap := flag.Bool("map", true, "Print an ASCII map of the layout")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	validate := flag.Bool("validate", false, "Check the layout file given by -in and exit")
	inFile := flag.String("in", "", "Layout YAML to validate or render")
	flag.Parse()

	logConfig, err := logger.LoadConfig(*loggingConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading logging config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Initialize(logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	useColor := !*noColor && term.IsTerminal(int(os.Stdout.Fd()))
	if !useColor {
		color.Disable()
	}

	if *inFile != "" {
		os.Exit(inspect(*inFile, *validate, *showMap, useColor))
	}
	if *validate {
		fmt.Fprintln(os.Stderr, "-validate needs -in")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *seed != 0 {
		cfg.Generator.Seed = *seed
	}
	if *outFile != "" {
		cfg.Output.Path = *outFile
	}
	if *dbFile != "" {
		cfg.Storage.Driver = "sqlite"
		cfg.Storage.SQLitePath = *dbFile
	}

	if err := run(cfg, *showMap, useColor); err != nil {
		logger.Error("generation failed", "error", err)
		fmt.Fprintln(os.Stderr, color.Style{color.FgRed, color.OpBold}.Sprintf("error: %v", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, showMap, useColor bool) error {
	steps, err := cfg.Generator.LayoutSteps()
	if err != nil {
		return err
	}

	if cfg.Generator.Seed == 0 {
		cfg.Generator.Seed = time.Now().UnixNano()
		logger.Info("Generation seed selected", "seed", cfg.Generator.Seed, "random", true)
	} else {
		logger.Info("Generation seed selected", "seed", cfg.Generator.Seed, "random", false)
	}

	g := layout.New(cfg.Generator.Options()...)
	requested := 0
	for _, s := range steps {
		requested += s.Count
	}
	placed, err := g.Apply(steps)
	if err != nil {
		return err
	}
	if err := g.Validate(); err != nil {
		return err
	}

	doc := layoutfile.FromRooms(g.RawRooms(), cfg.Generator.Seed)

	if cfg.Output.Path != "" {
		if err := layoutfile.WriteFile(cfg.Output.Path, doc); err != nil {
			return err
		}
		logger.Info("Layout written", "path", cfg.Output.Path)
	}

	var layoutID int64
	if cfg.Storage.Driver != "" {
		db, err := database.Open(cfg.Storage.DatabaseConfig())
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		layoutID, err = db.SaveLayout(ctx, doc)
		if errors.Is(err, database.ErrLayoutExists) {
			layoutID, err = db.FindLayoutByDigest(ctx, doc.Digest)
			logger.Info("Layout already stored", "id", layoutID)
		}
		if err != nil {
			return err
		}
	}

	if showMap {
		rooms, err := doc.RoomsData()
		if err != nil {
			return err
		}
		printMap(rooms, useColor)
	}

	summary(doc, placed, requested, layoutID)
	return nil
}

// summary prints the run report to stdout and logs it at REPORT level
func summary(doc *layoutfile.Document, placed, requested int, layoutID int64) {
	partitioned, doors := 0, 0
	for _, r := range doc.Rooms {
		if r.Partitioned {
			partitioned++
		}
		doors += r.DoorCount
	}

	label := color.Style{color.FgGray, color.OpBold}
	value := color.Style{color.FgGreen, color.OpBold}
	if placed < requested {
		value = color.Style{color.FgYellow, color.OpBold}
	}

	fmt.Printf("%s %s\n", label.Sprint("rooms:"), value.Sprintf("%d/%d", placed, requested))
	fmt.Printf("%s %d (%d partitioned)\n", label.Sprint("blocks:"), doc.BlockCount(), partitioned)
	fmt.Printf("%s %d\n", label.Sprint("door sides:"), doors)
	fmt.Printf("%s %d\n", label.Sprint("seed:"), doc.Seed)
	fmt.Printf("%s %s\n", label.Sprint("digest:"), doc.Digest)
	if layoutID != 0 {
		fmt.Printf("%s %d\n", label.Sprint("stored as:"), layoutID)
	}

	logger.Report("Generation finished",
		"rooms", placed,
		"requested", requested,
		"blocks", doc.BlockCount(),
		"digest", doc.Digest,
		"layout_id", layoutID)
}

// inspect validates and optionally renders an existing layout file
func inspect(path string, validateOnly, showMap, useColor bool) int {
	doc, err := layoutfile.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.Style{color.FgRed, color.OpBold}.Sprintf("invalid: %v", err))
		return 1
	}
	if validateOnly {
		fmt.Println(color.Style{color.FgGreen}.Sprintf("ok: %d rooms, %d blocks", len(doc.Rooms), doc.BlockCount()))
		return 0
	}
	if showMap {
		rooms, err := doc.RoomsData()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		printMap(rooms, useColor)
	}
	return 0
}

// printMap prints the text preview, warning when it is wider than the terminal
func printMap(rooms []layout.RoomData, useColor bool) {
	width := 0
	for _, r := range rooms {
		for _, b := range r.Blocks {
			width = max(width, 2*b.X+3)
		}
	}
	if cols, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > cols {
		logger.Warning("Map preview is wider than the terminal", "width", width, "columns", cols)
	}
	fmt.Print(render.ASCII(rooms, render.Options{Color: useColor, Legend: true}))
}
