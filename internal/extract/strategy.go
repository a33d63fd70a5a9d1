package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/constants"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/common"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/imaging"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/ocr"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/raster"
)

// Confidence assigned to text pulled directly from PDF text objects: there is
// no recognition uncertainty, only the fixed assumption that embedded text is
// trustworthy.
const structuralConfidence = 95

// Confidence assigned to the structural fragment of a hybrid result: direct
// extraction, but known to be incomplete for the document.
const partialStructuralConfidence = 60

// Config holds the strategy thresholds. They are uniform across document
// types and languages; tuning per type is deliberately not inferred.
type Config struct {
	MinStructuralChars int // characters (runes) of structural text at or above this short-circuit OCR; default 100
	HybridFloorChars   int // characters of structural text above this are worth merging with OCR; default 20
	Concurrency        int // concurrent page OCR bound; default 4
}

// Rasterizer is what the selector needs from the page renderer.
type Rasterizer interface {
	RasterizePDF(ctx context.Context, pdfPath string) ([]raster.Page, func(), error)
}

// StructuralExtractor is what the selector needs from the pdftotext wrapper.
type StructuralExtractor interface {
	ExtractText(ctx context.Context, path string) (string, int, error)
}

// Recognizer is what the selector needs from the OCR fallback chain.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, lang string) (ocr.Result, []ocr.Attempt, error)
}

// Selector decides how to turn a file into text: structural extraction for
// text PDFs, rasterization plus the OCR fallback chain for scans and images,
// and a hybrid merge when a PDF carries partial embedded text.
type Selector struct {
	cfg        Config
	structural StructuralExtractor
	rasterizer Rasterizer
	chain      Recognizer
	preOpts    imaging.Options
	logger     *slog.Logger
}

func NewSelector(cfg Config, structural StructuralExtractor, rasterizer Rasterizer, chain Recognizer, preOpts imaging.Options, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinStructuralChars <= 0 {
		cfg.MinStructuralChars = 100
	}
	if cfg.HybridFloorChars <= 0 {
		cfg.HybridFloorChars = 20
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Selector{
		cfg:        cfg,
		structural: structural,
		rasterizer: rasterizer,
		chain:      chain,
		preOpts:    preOpts,
		logger:     logger,
	}
}

// Extract picks a strategy based on the declared MIME type (falling back to
// the file extension) and runs it.
func (s *Selector) Extract(ctx context.Context, path, mimeType, lang string) (Result, error) {
	start := time.Now()
	lang = constants.NormalizeLang(lang)

	format := constants.MapMIMEToFormat(mimeType)
	if format == "" {
		if i := strings.LastIndex(path, "."); i >= 0 {
			format = constants.MapExtToFormat(path[i+1:])
		}
	}

	s.logger.Info("extract.start",
		"doc_id", common.DocumentIDFromContext(ctx), "path", path, "format", format, "lang", lang)

	var res Result
	var err error
	switch format {
	case constants.PDF:
		res, err = s.extractPDF(ctx, path, lang)
	case constants.IMAGE:
		res, err = s.extractImage(ctx, path, lang)
	default:
		s.logger.Error("extract.unsupported_format", "path", path, "mime", mimeType)
		return Result{}, common.NewAppError(common.CodeUnsupportedFormat,
			fmt.Sprintf("unsupported MIME type %q", mimeType), common.ErrInvalidInput)
	}
	res.Duration = time.Since(start)
	res.Language = lang
	res.Format = format
	return res, err
}

func (s *Selector) extractPDF(ctx context.Context, path, lang string) (Result, error) {
	structural, structuralPages, serr := s.structural.ExtractText(ctx, path)
	var warnings []string
	if serr != nil {
		// structural failure only means we go straight to OCR
		s.logger.Warn("extract.structural.failed", "path", path, "error", serr)
		warnings = append(warnings, serr.Error())
		structural = ""
	}

	trimmed := strings.TrimSpace(structural)
	// thresholds are in characters; Vietnamese diacritics are multi-byte
	structuralChars := utf8.RuneCountInString(trimmed)
	if structuralChars >= s.cfg.MinStructuralChars {
		s.logger.Info("extract.structural.sufficient", "path", path, "chars", structuralChars, "pages", structuralPages)
		return Result{
			Text:       trimmed,
			Pages:      structuralPages,
			Method:     constants.MethodTextExtraction,
			Confidence: structuralConfidence,
			Warnings:   warnings,
		}, nil
	}
	s.logger.Info("extract.structural.insufficient", "path", path, "chars", structuralChars)

	pages, cleanup, err := s.rasterizer.RasterizePDF(ctx, path)
	defer cleanup()
	if err != nil {
		// no page images means no further fallback for this document
		return Result{Warnings: warnings}, err
	}

	inputs := make([]pageInput, len(pages))
	for i, p := range pages {
		inputs[i] = pageInput{number: p.Number, path: p.Path}
	}

	ocrRes, err := s.ocrPages(ctx, inputs, lang)
	ocrRes.Warnings = append(warnings, ocrRes.Warnings...)
	if err != nil {
		if structuralChars > s.cfg.HybridFloorChars {
			// best available text: the partial structural pass
			s.logger.Warn("extract.ocr_failed.structural_retained", "path", path, "chars", structuralChars)
			return Result{
				Text:       trimmed,
				Pages:      structuralPages,
				Method:     constants.MethodTextExtraction,
				Confidence: partialStructuralConfidence,
				Warnings:   append(ocrRes.Warnings, "ocr failed; partial structural text retained: "+err.Error()),
			}, nil
		}
		return ocrRes, err
	}

	if structuralChars > s.cfg.HybridFloorChars {
		// preserve embedded form labels the rasterized pass might miss
		s.logger.Info("extract.hybrid", "path", path, "structural_chars", structuralChars)
		ocrRes.Text = trimmed + "\n\n" + ocrRes.Text
		ocrRes.Method = constants.MethodHybrid
		if partialStructuralConfidence > ocrRes.Confidence {
			ocrRes.Confidence = partialStructuralConfidence
		}
	}
	return ocrRes, nil
}

func (s *Selector) extractImage(ctx context.Context, path, lang string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read image: %w", err)
	}
	return s.ocrPages(ctx, []pageInput{{number: 1, data: data}}, lang)
}

// pageInput is one unit of OCR work: either bytes already in memory (single
// images) or a temp file owned by this page's processing lifetime.
type pageInput struct {
	number int
	path   string // temp file; removed once the page's chain run finishes
	data   []byte
}

type pageOutcome struct {
	text     string
	conf     float64
	engineID string
	err      error
}

// ocrPages runs Preprocess -> fallback chain for every page concurrently,
// bounded by the configured worker limit, and merges the results in
// page-number order regardless of completion order. Partial page failures
// are tolerated; only a document where every page fails is an error.
func (s *Selector) ocrPages(ctx context.Context, pages []pageInput, lang string) (Result, error) {
	outcomes := make([]pageOutcome, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, page := range pages {
		g.Go(func() error {
			outcomes[i] = s.ocrPage(gctx, page, lang)
			return nil // page failures are merged, not propagated
		})
	}
	_ = g.Wait()

	var b strings.Builder
	var warnings []string
	var confSum float64
	var succeeded int
	engineID := ""

	for i, out := range outcomes {
		if out.err != nil {
			warnings = append(warnings, fmt.Sprintf("page %d: %v", pages[i].number, out.err))
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n") // keep a clear page break marker
		}
		if len(pages) > 1 && lang == constants.LangVietnamese {
			b.WriteString(fmt.Sprintf("=== TRANG %d ===\n", pages[i].number))
		}
		b.WriteString(out.text)
		confSum += out.conf
		succeeded++
		switch {
		case engineID == "":
			engineID = out.engineID
		case engineID != out.engineID:
			engineID = "mixed"
		}
	}

	if succeeded == 0 {
		return Result{Pages: len(pages), PagesFailed: len(pages), Warnings: warnings},
			common.NoTextExtractedError(fmt.Sprintf("all %d pages failed: %s",
				len(pages), strings.Join(warnings, "; ")))
	}

	return Result{
		Text:        b.String(),
		Pages:       len(pages),
		PagesFailed: len(pages) - succeeded,
		Method:      constants.MethodOCR,
		Confidence:  confSum / float64(succeeded),
		EngineID:    engineID,
		Warnings:    warnings,
	}, nil
}

// ocrPage processes one page and releases its temp image unconditionally
// once the attempt chain finishes.
func (s *Selector) ocrPage(ctx context.Context, page pageInput, lang string) pageOutcome {
	data := page.data
	if data == nil {
		var err error
		data, err = os.ReadFile(page.path)
		if err != nil {
			return pageOutcome{err: fmt.Errorf("read page image: %w", err)}
		}
		defer func() {
			if rerr := os.Remove(page.path); rerr != nil && !os.IsNotExist(rerr) {
				s.logger.Warn("extract.page.cleanup_failed", "path", page.path, "error", rerr)
			}
		}()
	}

	enhanced, applied := imaging.Preprocess(data, s.preOpts, s.logger)
	s.logger.Debug("extract.page.preprocessed", "page", page.number, "stages", applied)

	res, attempts, err := s.chain.Recognize(ctx, enhanced, lang)
	if err != nil {
		return pageOutcome{err: err}
	}
	s.logger.Debug("extract.page.ok", "page", page.number,
		"engine", res.EngineID, "confidence", res.Confidence, "attempts", len(attempts))
	return pageOutcome{text: strings.TrimSpace(res.Text), conf: res.Confidence, engineID: res.EngineID}
}
