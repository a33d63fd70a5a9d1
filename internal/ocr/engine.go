package ocr

import (
	"context"
	"time"
)

// Region is one recognized text block with its bounding box, when the engine
// reports that level of detail.
type Region struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// Result is the output of one engine invocation. Confidence is on the 0-100
// scale regardless of the engine's native scoring.
type Result struct {
	Text       string
	Confidence float64
	EngineID   string
	Duration   time.Duration
	Regions    []Region
}

// Engine is the uniform adapter interface over concrete recognition backends.
type Engine interface {
	// ID identifies the engine in attempt logs and result metadata.
	ID() string
	// Recognize runs recognition on a single page image.
	Recognize(ctx context.Context, image []byte, lang string) (Result, error)
}
