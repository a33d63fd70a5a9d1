package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/common"
)

// ChainConfig is the explicit, constructor-injected configuration of the
// fallback chain: ordered adapter list, per-adapter timeout and acceptance
// policy. There is no package-level engine state.
type ChainConfig struct {
	Engines          []Engine      // ordered: most accurate first, always-available last
	PerEngineTimeout time.Duration // 0 = no per-engine deadline
	AcceptConfidence float64       // accept at or above, 0-100 scale; default 60
	MinTextLength    int           // reject text shorter than this many runes regardless of confidence; default 10
}

// Attempt records one engine invocation inside a chain run. Kept for
// diagnostics only, never persisted.
type Attempt struct {
	EngineID string
	Err      error
	Duration time.Duration
	Conf     float64
	TextLen  int
	Accepted bool
}

func (a Attempt) String() string {
	if a.Err != nil {
		return fmt.Sprintf("%s: error after %s: %v", a.EngineID, a.Duration.Round(time.Millisecond), a.Err)
	}
	return fmt.Sprintf("%s: conf=%.1f len=%d accepted=%t in %s",
		a.EngineID, a.Conf, a.TextLen, a.Accepted, a.Duration.Round(time.Millisecond))
}

// Chain orchestrates the ordered attempt across engine adapters. It is
// read-only after construction and safe for concurrent use across pages.
type Chain struct {
	cfg    ChainConfig
	logger *slog.Logger
}

func NewChain(cfg ChainConfig, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AcceptConfidence <= 0 {
		cfg.AcceptConfidence = 60
	}
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = 10
	}
	return &Chain{cfg: cfg, logger: logger}
}

// Recognize tries each engine in order until one produces an acceptable
// result: confidence at or above the threshold AND text at least
// MinTextLength runes. Engine errors and timeouts are recorded and skipped;
// they are expected degraded paths, not terminal failures. When no engine
// meets the threshold the best-scoring non-empty attempt wins; when nothing
// produced text at all the run fails with NO_TEXT_EXTRACTED.
func (c *Chain) Recognize(ctx context.Context, image []byte, lang string) (Result, []Attempt, error) {
	if len(c.cfg.Engines) == 0 {
		return Result{}, nil, common.NewAppError(common.CodeConfigError, "fallback chain has no engines", common.ErrInvalidInput)
	}

	attempts := make([]Attempt, 0, len(c.cfg.Engines))
	var best Result
	haveBest := false

	for _, eng := range c.cfg.Engines {
		res, err := c.invoke(ctx, eng, image, lang)
		att := Attempt{EngineID: eng.ID(), Duration: res.Duration, Err: err}
		if err != nil {
			attempts = append(attempts, att)
			c.logger.Warn("chain.attempt.failed", "engine", eng.ID(), "error", err)
			if ctx.Err() != nil {
				// parent deadline gone; later engines would fail the same way
				break
			}
			continue
		}

		att.Conf = res.Confidence
		// rune count, not bytes: Vietnamese text is mostly multi-byte
		att.TextLen = utf8.RuneCountInString(strings.TrimSpace(res.Text))

		if att.TextLen >= c.cfg.MinTextLength && res.Confidence >= c.cfg.AcceptConfidence {
			att.Accepted = true
			attempts = append(attempts, att)
			c.logger.Info("chain.attempt.accepted",
				"engine", eng.ID(), "confidence", res.Confidence, "text_len", att.TextLen)
			return res, attempts, nil
		}

		attempts = append(attempts, att)
		c.logger.Info("chain.attempt.below_threshold",
			"engine", eng.ID(), "confidence", res.Confidence, "text_len", att.TextLen)

		// retain the best-scoring attempt that produced any non-empty text
		if att.TextLen > 0 && (!haveBest || res.Confidence > best.Confidence) {
			best = res
			haveBest = true
		}
	}

	if haveBest {
		c.logger.Info("chain.best_effort_selected", "engine", best.EngineID, "confidence", best.Confidence)
		return best, attempts, nil
	}

	return Result{}, attempts, common.NoTextExtractedError(summarizeAttempts(attempts))
}

func (c *Chain) invoke(ctx context.Context, eng Engine, image []byte, lang string) (Result, error) {
	if c.cfg.PerEngineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.PerEngineTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := eng.Recognize(ctx, image, lang)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = common.EngineUnavailableError(eng.ID(), context.DeadlineExceeded)
		} else if !errors.Is(err, common.ErrEngineUnavailable) {
			err = common.EngineUnavailableError(eng.ID(), err)
		}
		return Result{Duration: time.Since(start)}, err
	}
	if res.Duration == 0 {
		res.Duration = time.Since(start)
	}
	if res.EngineID == "" {
		res.EngineID = eng.ID()
	}
	return res, nil
}

// summarizeAttempts builds an operator-readable account of which engines were
// tried, in what order, with what outcome.
func summarizeAttempts(attempts []Attempt) string {
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		parts = append(parts, a.String())
	}
	return "all engines exhausted without text: " + strings.Join(parts, "; ")
}
