package extract

import (
	"context"
	"time"

	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/constants"
)

// TextExtractor is Stage 1: file -> text.
type TextExtractor interface {
	Extract(ctx context.Context, path, mimeType, lang string) (Result, error)
}

// Result summarizes one extraction pass over a whole document.
// Confidence is on the engine-native 0-100 scale; the orchestrator converts
// to the externally visible 0.0-1.0 scale.
type Result struct {
	Text        string
	Pages       int
	PagesFailed int
	Format      constants.Format
	Method      constants.Method
	Language    string
	Confidence  float64
	EngineID    string // engine that produced the OCR text; "" for pure structural extraction
	Duration    time.Duration
	Warnings    []string
}

// Synthetic reports whether the text came from the placeholder engine rather
// than a real recognition pass.
func (r Result) Synthetic() bool {
	return r.EngineID == "synthetic"
}
