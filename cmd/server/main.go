package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/jellyjess/nail-salon/internal/app"
	"github.com/jellyjess/nail-salon/internal/config"
	"github.com/jellyjess/nail-salon/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Level: "error"}).Fatal("load config", zap.Error(err))
	}
	format := cfg.LogFormat
	if cfg.IsProduction() {
		format = "json"
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: format, Output: cfg.LogOutput})
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	err = a.Run(ctx)
	a.Close()
	if err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
	log.Info("server stopped")
}
