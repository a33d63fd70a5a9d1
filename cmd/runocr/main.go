// runocr processes a single file through the extraction pipeline and prints
// the result as JSON. It needs no database or queue; useful for smoke-testing
// an installation and for one-off documents.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/common"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/pipeline"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <file>")
		os.Exit(2)
	}
	path := os.Args[1]
	if _, err := os.Stat(path); err != nil {
		logger.Error("input file not readable", "path", path, "error", err)
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	orch := pipeline.Build(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Queue.ProcessingTimeout)
	defer cancel()

	start := time.Now()
	res, err := orch.Process(ctx, pipeline.Document{
		ID:       uuid.New().String(),
		Path:     path,
		MIMEType: mime.TypeByExtension(filepath.Ext(path)),
		Filename: filepath.Base(path),
		Language: cfg.OCR.Language,
	})
	if err != nil {
		logger.Error("processing failed", "path", path,
			"error", err, "duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	logger.Info("processing OK",
		"method", res.ProcessingMethod,
		"pages", res.PageCount,
		"confidence", res.Confidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
