package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/tendant/simple-auth/pkg/config"
	"github.com/tendant/simple-auth/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: migrate <up|down|version|force N>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}
	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if err := database.RunMigrate(logger, cfg.Database, os.Args[1], os.Args[2:]); err != nil {
		slog.Error("Migration failed", "driver", cfg.Database.Driver, "err", err)
		os.Exit(1)
	}
}
