package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/srpkeeper/internal/logging"
	"github.com/dmitrijs2005/srpkeeper/internal/server"
	"github.com/dmitrijs2005/srpkeeper/internal/server/config"
)

func main() {

	ctx := context.Background()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.NewJSON(os.Stdout, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "init failed", "error", err)
		os.Exit(1)
	}

	runErr := app.Run(ctx)
	if err := app.Close(); err != nil {
		logger.Error(ctx, "shutdown failed", "error", err)
	}
	if runErr != nil {
		os.Exit(1)
	}

}
