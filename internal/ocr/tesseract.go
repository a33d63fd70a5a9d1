package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/constants"
)

var reBoxNoise = regexp.MustCompile(`(?m)^\s*[_\-]{3,}\s*$`)

// TesseractConfig configures the local tesseract adapter.
type TesseractConfig struct {
	Binary      string // binary name or absolute path; if empty -> "tesseract"
	TessdataDir string
	PSM         int // 6 is good for a uniform block of text
	OEM         int // 3 = default engine selection
}

// TesseractEngine runs the local tesseract binary. It is the last real engine
// in the fallback order and must work without network access.
type TesseractEngine struct {
	cfg    TesseractConfig
	runner Runner
	logger *slog.Logger
}

func NewTesseractEngine(cfg TesseractConfig, runner Runner, logger *slog.Logger) *TesseractEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.PSM <= 0 {
		cfg.PSM = 6
	}
	if cfg.OEM <= 0 {
		cfg.OEM = 3
	}
	return &TesseractEngine{cfg: cfg, runner: runner, logger: logger}
}

func (e *TesseractEngine) ID() string { return "tesseract" }

// Recognize writes the page image to a temp file and runs
// tesseract <file> stdout -l <lang> --oem N --psm N, then a second TSV pass
// for mean word confidence. If the requested language pack is missing the
// call is retried with English.
func (e *TesseractEngine) Recognize(ctx context.Context, image []byte, lang string) (Result, error) {
	start := time.Now()

	tmp, err := os.CreateTemp("", "sdi-page-*.png")
	if err != nil {
		return Result{}, fmt.Errorf("tesseract: temp file: %w", err)
	}
	path := tmp.Name()
	defer func() {
		if rerr := os.Remove(path); rerr != nil {
			e.logger.Warn("tesseract.tempfile.remove_failed", "path", path, "error", rerr)
		}
	}()
	if _, err := tmp.Write(image); err != nil {
		_ = tmp.Close()
		return Result{}, fmt.Errorf("tesseract: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Result{}, fmt.Errorf("tesseract: close temp file: %w", err)
	}

	lang = constants.NormalizeLang(lang)
	text, err := e.run(ctx, path, lang)
	if err != nil && lang != constants.LangEnglish && isMissingLanguage(err) {
		e.logger.Warn("tesseract.language_missing", "lang", lang, "fallback", constants.LangEnglish)
		text, err = e.run(ctx, path, constants.LangEnglish)
		lang = constants.LangEnglish
	}
	if err != nil {
		return Result{}, err
	}

	conf := e.tsvConfidence(ctx, path, lang)

	return Result{
		Text:       strings.TrimSpace(reBoxNoise.ReplaceAllString(text, "")),
		Confidence: conf,
		EngineID:   e.ID(),
		Duration:   time.Since(start),
	}, nil
}

func (e *TesseractEngine) run(ctx context.Context, path, lang string) (string, error) {
	args := e.baseArgs(path, lang)
	out, errb, err := e.runner.Run(ctx, e.cfg.Binary, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

// tsvConfidence runs tesseract in TSV mode and returns the mean word
// confidence on the 0-100 scale. Entries reported as -1 (layout rows) are
// excluded. A failed TSV pass degrades to 0, never to an error: confidence
// is advisory.
func (e *TesseractEngine) tsvConfidence(ctx context.Context, path, lang string) float64 {
	args := append(e.baseArgs(path, lang), "tsv")
	out, _, err := e.runner.Run(ctx, e.cfg.Binary, args...)
	if err != nil {
		e.logger.Warn("tesseract.tsv.failed", "error", err)
		return 0
	}

	var sum, n float64
	for i, ln := range strings.Split(string(out), "\n") {
		if i == 0 || len(ln) == 0 {
			continue // header
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := cols[len(cols)-2]
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, perr := strconv.ParseFloat(confStr, 64); perr == nil && v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / n
}

func (e *TesseractEngine) baseArgs(path, lang string) []string {
	args := []string{path, "stdout", "-l", lang,
		"--oem", strconv.Itoa(e.cfg.OEM),
		"--psm", strconv.Itoa(e.cfg.PSM),
		"-c", "preserve_interword_spaces=1",
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}

func isMissingLanguage(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Failed loading language") ||
		strings.Contains(msg, "Could not initialize tesseract")
}
