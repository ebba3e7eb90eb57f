package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/lawnchairsociety/roomgen/internal/database"
	"github.com/lawnchairsociety/roomgen/internal/render"
)

func main() {
	dbPath := flag.String("db", "data/layouts.db", "Path to SQLite layout database")
	limit := flag.Int("limit", 20, "Number of layouts to list (0 for all)")
	show := flag.Int64("show", 0, "Render the layout with this id")
	del := flag.Int64("delete", 0, "Delete the layout with this id")
	flag.Parse()

	db, err := database.OpenSQLite(*dbPath)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()

	if *del != 0 {
		if err := db.DeleteLayout(ctx, *del); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
		fmt.Printf("Deleted layout %d\n", *del)
	}

	if *show != 0 {
		doc, err := db.GetLayout(ctx, *show)
		if err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
		if err := doc.Validate(); err != nil {
			fmt.Println("Stored layout is invalid:", err)
		}
		rooms, err := doc.RoomsData()
		if err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
		fmt.Printf("Layout %d: %d rooms, %d blocks, seed %d\n\n", *show, len(doc.Rooms), doc.BlockCount(), doc.Seed)
		fmt.Print(render.ASCII(rooms, render.Options{Legend: true}))
		return
	}

	layouts, err := db.ListLayouts(ctx, *limit)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded %d layouts\n", len(layouts))
	for _, l := range layouts {
		digest := l.Digest
		if len(digest) > 12 {
			digest = digest[:12]
		}
		fmt.Printf("  %4d  %s  seed=%-20d rooms=%-4d blocks=%-5d %s\n",
			l.ID, digest, l.Seed, l.RoomCount, l.BlockCount, l.GeneratedAt.Format("2006-01-02 15:04:05"))
	}
}
