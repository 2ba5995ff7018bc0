package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"minimvc/internal/app"
	"minimvc/internal/config"
	"minimvc/internal/demo"
	"minimvc/internal/infrastructure"
)

func main() {
	location := flag.String("config", "", "path to the bootstrap resource (defaults to $MVC_CONFIG_LOCATION, then config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*location)
	if err != nil {
		// the configured logger does not exist yet
		logger := infrastructure.NewLogger(config.Default().Logging, os.Stderr)
		logger.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()
	application, err := app.NewApplication(ctx, cfg, nil, demo.Register)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	if err := application.Run(ctx); err != nil {
		application.Logger.Error("Application error", slog.String("error", err.Error()))
		infrastructure.CloseLogFile()
		os.Exit(1)
	}
}
