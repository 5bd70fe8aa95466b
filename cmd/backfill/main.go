package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"storemirror/internal/backfill"
	"storemirror/internal/config"
	"storemirror/internal/database"
	"storemirror/internal/logging"
	"storemirror/internal/metrics"
	"storemirror/internal/pipeline"
	"storemirror/internal/remote"
)

// One-shot runner for the full backfill: every page of every collection,
// bulk strategy, then exit. Useful for initial seeding without going through
// the HTTP endpoint.
func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}
	logger := logging.ForComponent(baseLogger, "backfill")

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	metrics.Register()

	client := remote.NewClient(cfg.Remote, remote.NewMemoryTokenCache(), &logger)
	ingestor := pipeline.NewIngestor(db, &logger)
	bf := backfill.New(client, ingestor, cfg.Remote.PageSize, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := bf.Run(ctx)
	if err != nil {
		return err
	}

	for syncType, n := range summary {
		logger.Info().Str("sync_type", syncType).Int("records", n).Msg("backfilled")
	}
	return nil
}
