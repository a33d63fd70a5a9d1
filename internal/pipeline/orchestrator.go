// Package pipeline coordinates the full document run: extraction, text
// normalization, structured field extraction, and the status transitions
// around them.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/constants"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/common"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/extract"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/fields"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/normalize"
)

// Document is the input to one processing run.
type Document struct {
	ID       string
	Path     string
	MIMEType string
	Filename string
	Language string
}

// Transition records one status change with its wall-clock time.
type Transition struct {
	Status constants.JobStatus `json:"status"`
	At     time.Time           `json:"at"`
}

// ProcessingResult is the externally visible outcome of one run.
// Confidence is on the 0.0-1.0 scale.
type ProcessingResult struct {
	DocumentID       string                 `json:"documentId"`
	ExtractedText    string                 `json:"extractedText"`
	Confidence       float64                `json:"confidence"`
	PageCount        int                    `json:"pageCount"`
	ProcessingMethod constants.Method       `json:"processingMethod"`
	Language         string                 `json:"language"`
	StructuredData   *fields.StructuredData `json:"structuredData,omitempty"`
	ProcessingTimeMs int64                  `json:"processingTimeMs"`
	Transitions      []Transition           `json:"transitions"`
	Warnings         []string               `json:"warnings,omitempty"`
}

// Normalizer is the text cleanup stage contract.
type Normalizer interface {
	Normalize(ctx context.Context, text string) normalize.Outcome
}

// FieldExtractor is the structuring stage contract.
type FieldExtractor interface {
	Extract(text string) fields.StructuredData
}

// Orchestrator walks a document through the stage sequence. Extraction
// failures fail the run; normalization and field extraction degrade silently
// because partial text output still has value.
type Orchestrator struct {
	extractor  extract.TextExtractor
	normalizer Normalizer
	structurer FieldExtractor
	timeout    time.Duration
	logger     *slog.Logger
}

func NewOrchestrator(extractor extract.TextExtractor, normalizer Normalizer, structurer FieldExtractor, timeout time.Duration, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Orchestrator{
		extractor:  extractor,
		normalizer: normalizer,
		structurer: structurer,
		timeout:    timeout,
		logger:     logger,
	}
}

// Process runs the whole pipeline for one document.
func (o *Orchestrator) Process(ctx context.Context, doc Document) (ProcessingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	ctx = common.WithDocumentID(ctx, doc.ID)

	start := time.Now()
	res := ProcessingResult{DocumentID: doc.ID}
	mark := func(s constants.JobStatus) {
		res.Transitions = append(res.Transitions, Transition{Status: s, At: time.Now()})
		o.logger.Info("pipeline.status", "doc_id", doc.ID, "status", s)
	}
	mark(constants.JobStatusPending)

	if constants.MapMIMEToFormat(doc.MIMEType) == constants.PDF {
		// page rendering happens inside the extraction strategy, but the
		// stage is surfaced so PDF progress is observable
		mark(constants.JobStatusRasterizing)
	}
	mark(constants.JobStatusExtracting)
	extracted, err := o.extractor.Extract(ctx, doc.Path, doc.MIMEType, doc.Language)
	if err != nil {
		mark(constants.JobStatusFailed)
		res.ProcessingTimeMs = time.Since(start).Milliseconds()
		res.Warnings = extracted.Warnings
		o.logger.Error("pipeline.extract.failed", "doc_id", doc.ID, "error", err)
		return res, err
	}
	res.PageCount = extracted.Pages
	res.ProcessingMethod = extracted.Method
	res.Language = extracted.Language
	res.Confidence = toUnitScale(extracted)
	res.Warnings = extracted.Warnings
	if extracted.Synthetic() {
		res.Warnings = append(res.Warnings, "text is a simulated placeholder; no engine produced a real recognition")
	}
	o.logger.Info("pipeline.extract.ok", "doc_id", doc.ID,
		"method", extracted.Method, "pages", extracted.Pages,
		"confidence", res.Confidence, "engine", extracted.EngineID)

	text := extracted.Text

	mark(constants.JobStatusNormalizing)
	if o.normalizer != nil {
		outcome := o.normalizer.Normalize(ctx, text)
		if outcome.Text != "" {
			text = outcome.Text
		}
		if outcome.Degraded {
			res.Warnings = append(res.Warnings, "text correction service unavailable; local cleanup applied")
		}
	}
	res.ExtractedText = text

	mark(constants.JobStatusStructuring)
	if o.structurer != nil {
		sd := o.structurer.Extract(text)
		res.StructuredData = &sd
	}

	mark(constants.JobStatusCompleted)
	res.ProcessingTimeMs = time.Since(start).Milliseconds()
	return res, nil
}

// toUnitScale converts engine-native 0-100 confidence to the 0.0-1.0 scale
// reported to callers. Structural extraction is reported as the fixed 0.95.
func toUnitScale(r extract.Result) float64 {
	c := r.Confidence / 100
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}
