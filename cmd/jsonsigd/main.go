package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"jsonsig/internal/app"
	"jsonsig/internal/config"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		log.Fatalf("failed to init: %v", err)
	}
	defer a.Close()

	if err := a.Serve(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("server exited")
		_ = a.Close()
		os.Exit(1)
	}
	a.Logger.Info().Msg("shutdown complete")
}
