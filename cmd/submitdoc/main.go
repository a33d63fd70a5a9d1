// submitdoc registers a document in the job store and enqueues it for the
// worker daemon.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/constants"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/common"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/queue"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "submitdoc <file>")
		os.Exit(2)
	}
	path, err := filepath.Abs(os.Args[1])
	if err != nil {
		logger.Error("resolve path", "arg", os.Args[1], "error", err)
		os.Exit(2)
	}
	if _, err := os.Stat(path); err != nil {
		logger.Error("input file not readable", "path", path, "error", err)
		os.Exit(2)
	}
	ext := constants.NormalizeExt(filepath.Ext(path))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		logger.Error("unsupported file extension", "ext", ext)
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:         cfg.Database.DSN,
		MaxConns:    2,
		DialTimeout: cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	jobs := repository.NewJobRepository(pool)
	job, err := jobs.Start(ctx, filepath.Base(path), path,
		mime.TypeByExtension(filepath.Ext(path)), cfg.OCR.Language)
	if err != nil {
		logger.Error("register job", "error", err)
		os.Exit(1)
	}

	producer, err := queue.NewProducer(cfg.Queue.RedisURL, cfg.Queue.QueueName, logger)
	if err != nil {
		logger.Error("build producer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := producer.Close(); cerr != nil {
			logger.Warn("close producer", "error", cerr)
		}
	}()

	if err := producer.Enqueue(ctx, queue.ProcessPayload{
		JobID:    job.ID.String(),
		Path:     job.Path,
		MIMEType: job.MIMEType,
		Filename: job.Filename,
		Language: job.Language,
	}); err != nil {
		logger.Error("enqueue job", "job_id", job.ID, "error", err)
		os.Exit(1)
	}

	fmt.Println(job.ID.String())
}
