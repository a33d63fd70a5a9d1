// docinteld is the document processing worker daemon: it consumes processing
// tasks from Redis, runs the extraction pipeline, and persists results to
// Postgres.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/common"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/pipeline"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/queue"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	jobs := repository.NewJobRepository(pool)
	orch := pipeline.Build(cfg, logger)

	consumer, err := queue.NewConsumer(queue.Config{
		RedisURL:    cfg.Queue.RedisURL,
		QueueName:   cfg.Queue.QueueName,
		Concurrency: cfg.Queue.Concurrency,
		TaskTimeout: cfg.Queue.ProcessingTimeout,
	}, orch, jobs, logger)
	if err != nil {
		logger.Error("build consumer", "error", err)
		os.Exit(1)
	}

	if err := consumer.Start(); err != nil {
		logger.Error("start consumer", "error", err)
		os.Exit(1)
	}
	logger.Info("worker running", "queue", cfg.Queue.QueueName, "concurrency", cfg.Queue.Concurrency)

	<-ctx.Done()
	logger.Info("shutting down")
	consumer.Shutdown()
	logger.Info("stopped")
}
