// exportjobs writes an XLSX summary of the most recent completed jobs.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/common"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/export"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	out := flag.String("o", "jobs.xlsx", "output file")
	limit := flag.Int("limit", 500, "maximum number of jobs to export")
	flag.Parse()

	cfg := common.LoadConfig()
	if cfg.Database.DSN == "" {
		logger.Error("DB_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
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

	svc := export.NewService(repository.NewJobRepository(pool), logger)
	data, err := svc.ExportJobsXLSX(ctx, *limit)
	if err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*out, data, 0o644); err != nil {
		logger.Error("write workbook", "path", *out, "error", err)
		os.Exit(1)
	}
	logger.Info("export written", "path", *out, "bytes", len(data))
}
