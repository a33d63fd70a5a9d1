package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/ocr"
)

// PDFText pulls text straight from a PDF's internal text objects via
// pdftotext, without rendering pixels or running recognition.
type PDFText struct {
	bin    string
	runner ocr.Runner
	logger *slog.Logger
}

func NewPDFText(bin string, runner ocr.Runner, logger *slog.Logger) *PDFText {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ocr.ExecRunner{}
	}
	if bin == "" {
		bin = "pdftotext"
	}
	return &PDFText{bin: bin, runner: runner, logger: logger}
}

// ExtractText returns the structural text and the page count.
func (p *PDFText) ExtractText(ctx context.Context, path string) (string, int, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := p.runner.Run(ctx, p.bin, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, fmt.Errorf("pdftotext: %w: %s", err, strings.TrimSpace(string(errb)))
	}
	text := string(out)
	// A form-feed \f is used as page separator by default
	pages := 1 + strings.Count(text, "\f")
	return text, pages, nil
}
