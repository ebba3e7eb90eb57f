package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lawnchairsociety/roomgen/internal/config"
	"github.com/lawnchairsociety/roomgen/internal/database"
	"github.com/lawnchairsociety/roomgen/internal/logger"
	"github.com/lawnchairsociety/roomgen/internal/server"
)

func main() {
	configFile := flag.String("config", "data/roomgen.yaml", "Path to config YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	address := flag.String("addr", "", "Listen address (overrides config)")
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

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Error("Failed to load config", "path", *configFile, "error", err)
		os.Exit(1)
	}
	if *address != "" {
		cfg.Server.Address = *address
	}

	var store server.LayoutStore
	if cfg.Storage.Driver != "" {
		db, err := database.Open(cfg.Storage.DatabaseConfig())
		if err != nil {
			logger.Error("Failed to open database", "driver", cfg.Storage.Driver, "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store = db
		logger.Info("Layout store ready", "driver", cfg.Storage.Driver)
	}

	srv := server.New(cfg.Server, store)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Server.Address)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Error("Server stopped", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", "error", err)
	}
}
