package raster

import (
	"context"
	"fmt"
	"image"
	_ "image/png" // page images are rendered as PNG
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/common"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/ocr"
)

// Page is one rasterized unit of a document. The image file is private to the
// page's processing lifetime; the cleanup returned by RasterizePDF removes it.
type Page struct {
	Number int // 1-based
	Path   string
	Width  int
	Height int
}

// Config configures the rasterizer.
type Config struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
	DPI      int    // default 300
	MaxPages int    // 0 = no limit
}

// Rasterizer converts a PDF into one raster image per page by shelling out to
// pdftoppm. It is isolated from OCR so that rendering failures are
// distinguishable from recognition failures.
type Rasterizer struct {
	cfg    Config
	runner ocr.Runner
	logger *slog.Logger
}

func NewRasterizer(cfg Config, runner ocr.Runner, logger *slog.Logger) *Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ocr.ExecRunner{}
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Rasterizer{cfg: cfg, runner: runner, logger: logger}
}

// RasterizePDF renders every page of the PDF at the configured DPI and
// returns the pages in page-number order plus a cleanup that removes the
// temp directory. The cleanup is safe to call unconditionally.
//
// Failures carry RASTERIZATION_FAILED; a missing pdftoppm binary and a
// malformed PDF produce distinct messages so operators can tell "install the
// tool" from "reject the input".
func (r *Rasterizer) RasterizePDF(ctx context.Context, pdfPath string) ([]Page, func(), error) {
	noop := func() {}

	tmpDir, err := os.MkdirTemp("", "sdi-raster-*")
	if err != nil {
		return nil, noop, common.RasterizationError("create temp dir", err)
	}
	cleanup := func() {
		if rerr := os.RemoveAll(tmpDir); rerr != nil {
			r.logger.Warn("raster.cleanup_failed", "dir", tmpDir, "error", rerr)
		}
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png <in.pdf> <tmp/page>
	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, "-r", strconv.Itoa(r.cfg.DPI), "-png", pdfPath, prefix)
	if err != nil {
		if ocr.IsToolMissing(err) {
			return nil, cleanup, common.RasterizationError(
				fmt.Sprintf("rasterizing utility %q is not installed", r.cfg.Pdftoppm), err)
		}
		return nil, cleanup, common.RasterizationError(
			fmt.Sprintf("malformed or unreadable PDF: %s", truncateStderr(errb)), err)
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if r.cfg.MaxPages > 0 && len(matches) > r.cfg.MaxPages {
		matches = matches[:r.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, cleanup, common.RasterizationError("pdftoppm produced no page images", nil)
	}

	pages := make([]Page, 0, len(matches))
	for i, path := range matches {
		p := Page{Number: i + 1, Path: path}
		if w, h, derr := imageSize(path); derr == nil {
			p.Width, p.Height = w, h
		}
		pages = append(pages, p)
	}

	r.logger.Debug("raster.ok", "pdf", pdfPath, "pages", len(pages), "dpi", r.cfg.DPI)
	return pages, cleanup, nil
}

func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

func truncateStderr(b []byte) string {
	const max = 512
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "...(truncated)"
}
