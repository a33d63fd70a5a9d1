package ocr

import (
	"context"
	"time"

	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/constants"
)

// SyntheticEngineID tags results produced by the placeholder engine so callers
// can tell a simulated response from a real recognition pass.
const SyntheticEngineID = "synthetic"

// syntheticConfidence is deliberately below any sane acceptance threshold:
// the placeholder is only ever selected as a best-effort when every real
// engine has failed.
const syntheticConfidence = 25

// SyntheticEngine is the last-resort responder used when no real engine is
// reachable. Its output is deterministic and clearly labeled.
type SyntheticEngine struct{}

func NewSyntheticEngine() *SyntheticEngine { return &SyntheticEngine{} }

func (*SyntheticEngine) ID() string { return SyntheticEngineID }

func (*SyntheticEngine) Recognize(_ context.Context, _ []byte, lang string) (Result, error) {
	start := time.Now()
	text := "[khong nhan dang duoc noi dung - ket qua mo phong]"
	if constants.NormalizeLang(lang) == constants.LangEnglish {
		text = "[content could not be recognized - simulated result]"
	}
	return Result{
		Text:       text,
		Confidence: syntheticConfidence,
		EngineID:   SyntheticEngineID,
		Duration:   time.Since(start),
	}, nil
}
