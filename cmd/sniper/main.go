package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adda-Baaj/bazaar-sniper/internal/app"
	"github.com/Adda-Baaj/bazaar-sniper/internal/config"
	"github.com/Adda-Baaj/bazaar-sniper/internal/logger"
)

const (
	exitSetup   = 1
	exitPersist = 2
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sniper failed: %v\n", err)
		if errors.Is(err, app.ErrPersist) {
			os.Exit(exitPersist)
		}
		os.Exit(exitSetup)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("sniper starting", "config", cfg.Redacted())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sniper, err := app.NewSniper(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize sniper", "error", err)
		return err
	}

	if err := sniper.Run(ctx); err != nil {
		return fmt.Errorf("sniper run: %w", err)
	}

	return nil
}
