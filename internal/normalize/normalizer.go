// Package normalize turns raw recognized text into cleaned text: a remote
// correction service when reachable, an offline Vietnamese cleaner otherwise.
package normalize

import (
	"context"
	"log/slog"
	"strings"
)

// Source identifies which path produced the cleaned text.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// Outcome is the normalization result for one document.
type Outcome struct {
	Text        string
	Corrections []string
	Source      Source
	Degraded    bool // true when the remote path was configured but unusable
}

// Cleaner abstracts the remote correction client for testing.
type Cleaner interface {
	Clean(ctx context.Context, text string) (string, []string, error)
}

// Normalizer prefers the remote correction service and falls back to the
// deterministic local cleaner. A remote answer is discarded when its length
// collapses below a fifth of the input, which signals truncation rather than
// correction.
type Normalizer struct {
	remote Cleaner
	logger *slog.Logger
}

// minRetainRatio guards against the remote service returning a truncated
// answer; anything shorter than this share of the input is not a cleanup.
const minRetainRatio = 0.2

func NewNormalizer(remote Cleaner, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{remote: remote, logger: logger}
}

// Normalize never fails: any remote problem degrades to the local path.
func (n *Normalizer) Normalize(ctx context.Context, text string) Outcome {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Outcome{Source: SourceLocal}
	}

	if n.remote != nil {
		cleaned, improvements, err := n.remote.Clean(ctx, trimmed)
		switch {
		case err != nil:
			n.logger.Warn("normalize.remote_failed", "error", err)
		case float64(len(cleaned)) < minRetainRatio*float64(len(trimmed)):
			n.logger.Warn("normalize.remote_discarded",
				"input_chars", len(trimmed), "output_chars", len(cleaned))
		default:
			n.logger.Info("normalize.remote_ok",
				"input_chars", len(trimmed), "output_chars", len(cleaned),
				"improvements", len(improvements))
			return Outcome{
				Text:        strings.TrimSpace(cleaned),
				Corrections: improvements,
				Source:      SourceRemote,
			}
		}
	}

	cleaned, corrections := CleanLocal(trimmed)
	n.logger.Info("normalize.local_ok", "input_chars", len(trimmed),
		"output_chars", len(cleaned), "corrections", len(corrections))
	return Outcome{
		Text:        cleaned,
		Corrections: corrections,
		Source:      SourceLocal,
		Degraded:    n.remote != nil,
	}
}
