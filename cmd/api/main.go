package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "shopmart/docs"
	"shopmart/pkg/app"
	"shopmart/pkg/config"
	"shopmart/pkg/logger"
	"shopmart/pkg/otel"
)

// @title ShopMart API
// @version 1.0
// @description Catalog, item images and checkout settlement
// @host localhost:8443
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(os.Stderr, logger.LevelError, "shopmart", nil).Error(context.Background(), "load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, logger.ParseLevel(cfg.LogLevel), "shopmart", otel.GetTraceID)
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Error(context.Background(), "invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg, log, nil); err != nil {
		log.Error(ctx, "server stopped", "error", err)
		os.Exit(1)
	}
}
