package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storemirror/internal/api"
	"storemirror/internal/backfill"
	"storemirror/internal/config"
	"storemirror/internal/database"
	"storemirror/internal/engine"
	"storemirror/internal/logging"
	"storemirror/internal/metrics"
	"storemirror/internal/pager"
	"storemirror/internal/pipeline"
	"storemirror/internal/remote"
	"storemirror/internal/repository"
	"storemirror/internal/returns"
	"storemirror/internal/scheduler"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	metrics.Register()

	client := remote.NewClient(cfg.Remote, remote.NewMemoryTokenCache(), &logger)
	ingestor := pipeline.NewIngestor(db, &logger)
	cursors, deadLetter := buildRepositories(redisClient, &logger)

	sched := scheduler.New(db, client, cfg.Sync.DailyThreshold, cfg.Remote.PageSize,
		cfg.Sync.PagesPerTask, cfg.Sync.StaleProcessing, &logger)
	eng := engine.New(db, client, ingestor, deadLetter, cfg.Remote.PageSize, &logger)
	pg := pager.New(client, ingestor, cursors, cfg.Sync.SelfBaseURL, cfg.API.SchedulerToken,
		cfg.Sync.FollowUpDelay, cfg.Remote.PageSize, &logger)
	bf := backfill.New(client, ingestor, cfg.Remote.PageSize, &logger)

	var returnsSvc api.ReturnsSyncer
	if cfg.Sync.ReturnsCollaboratorURL != "" {
		returnsSvc = returns.NewService(client, returns.NewHTTPCollaborator(cfg.Sync.ReturnsCollaboratorURL),
			cfg.Remote.PageSize, &logger)
	}

	httpServer := api.NewHTTPServer(cfg.API, db, sched, eng, pg, bf, returnsSvc, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetricsServer(ctx, cfg, &logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := logging.ForComponent(baseLogger, "api-main")

	return cfg, logger, closer, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		logger.Warn().Msg("redis is not configured, pager cursors are memory-only")
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := repository.Ping(ctx, client); err != nil {
		logger.Error().Err(err).Msg("redis ping failed, pager cursors fall back to memory")
	}
	return client
}

func buildRepositories(redisClient *redis.Client, logger *zerolog.Logger) (repository.CursorRepository, repository.DeadLetterSink) {
	memory := repository.NewMemoryCursorRepository()
	if redisClient == nil {
		return memory, nil
	}
	primary := repository.NewRedisCursorRepository(redisClient, 0)
	return repository.NewFailoverCursorRepository(primary, memory, logger), primary
}

func startMetricsServer(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("metrics listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
