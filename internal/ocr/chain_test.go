package ocr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/common"
)

type stubEngine struct {
	id    string
	res   Result
	err   error
	delay time.Duration
	calls int
}

func (s *stubEngine) ID() string { return s.id }

func (s *stubEngine) Recognize(ctx context.Context, _ []byte, _ string) (Result, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	if s.err != nil {
		return Result{}, s.err
	}
	return s.res, nil
}

func TestChainFallsBackPastFailingEngine(t *testing.T) {
	failing := &stubEngine{id: "remote-ocr", err: errors.New("connection refused")}
	good := &stubEngine{id: "tesseract", res: Result{Text: "van ban duoc nhan dang", Confidence: 70}}
	last := &stubEngine{id: "synthetic", res: Result{Text: "[placeholder]", Confidence: 25}}

	chain := NewChain(ChainConfig{Engines: []Engine{failing, good, last}}, nil)

	res, attempts, err := chain.Recognize(context.Background(), []byte("img"), "vie")
	require.NoError(t, err)
	assert.Equal(t, "tesseract", res.EngineID)
	assert.Equal(t, 70.0, res.Confidence)
	assert.Len(t, attempts, 2)
	assert.False(t, attempts[0].Accepted)
	assert.True(t, attempts[1].Accepted)
	assert.Equal(t, 0, last.calls, "later engines must not run after acceptance")
}

func TestChainTimeoutTriggersFallback(t *testing.T) {
	slow := &stubEngine{id: "remote-ocr", delay: 200 * time.Millisecond,
		res: Result{Text: "never returned", Confidence: 99}}
	fast := &stubEngine{id: "tesseract", res: Result{Text: "ket qua nhanh hop le", Confidence: 80}}

	chain := NewChain(ChainConfig{
		Engines:          []Engine{slow, fast},
		PerEngineTimeout: 20 * time.Millisecond,
	}, nil)

	res, attempts, err := chain.Recognize(context.Background(), []byte("img"), "vie")
	require.NoError(t, err)
	assert.Equal(t, "tesseract", res.EngineID)
	require.Len(t, attempts, 2)
	assert.ErrorIs(t, attempts[0].Err, common.ErrEngineUnavailable)
}

func TestChainAcceptanceBoundary(t *testing.T) {
	t.Run("at threshold accepted", func(t *testing.T) {
		eng := &stubEngine{id: "tesseract", res: Result{Text: "du dai de duoc chap nhan", Confidence: 60}}
		chain := NewChain(ChainConfig{Engines: []Engine{eng}}, nil)

		res, attempts, err := chain.Recognize(context.Background(), []byte("img"), "vie")
		require.NoError(t, err)
		assert.True(t, attempts[0].Accepted)
		assert.Equal(t, 60.0, res.Confidence)
	})

	t.Run("below threshold retained as best effort", func(t *testing.T) {
		eng := &stubEngine{id: "tesseract", res: Result{Text: "van ban mo va nhieu", Confidence: 59}}
		chain := NewChain(ChainConfig{Engines: []Engine{eng}}, nil)

		res, attempts, err := chain.Recognize(context.Background(), []byte("img"), "vie")
		require.NoError(t, err)
		assert.False(t, attempts[0].Accepted)
		assert.Equal(t, 59.0, res.Confidence)
	})
}

func TestChainShortTextRejectedDespiteConfidence(t *testing.T) {
	short := &stubEngine{id: "remote-ocr", res: Result{Text: "ab", Confidence: 95}}
	long := &stubEngine{id: "tesseract", res: Result{Text: "noi dung day du cua trang", Confidence: 65}}
	chain := NewChain(ChainConfig{Engines: []Engine{short, long}}, nil)

	res, attempts, err := chain.Recognize(context.Background(), []byte("img"), "vie")
	require.NoError(t, err)
	assert.Equal(t, "tesseract", res.EngineID)
	assert.False(t, attempts[0].Accepted)
	assert.True(t, attempts[1].Accepted)
}

func TestChainMinTextLengthCountsCharactersNotBytes(t *testing.T) {
	// 7 characters but 12 bytes: must not clear the 10-character floor
	short := &stubEngine{id: "remote-ocr", res: Result{Text: "Độc lập", Confidence: 95}}
	long := &stubEngine{id: "tesseract", res: Result{Text: "Cộng hòa xã hội chủ nghĩa", Confidence: 70}}
	chain := NewChain(ChainConfig{Engines: []Engine{short, long}}, nil)

	res, attempts, err := chain.Recognize(context.Background(), []byte("img"), "vie")
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.False(t, attempts[0].Accepted)
	assert.Equal(t, 7, attempts[0].TextLen)
	assert.True(t, attempts[1].Accepted)
	assert.Equal(t, "tesseract", res.EngineID)
}

func TestChainBestEffortPrefersHigherConfidence(t *testing.T) {
	low := &stubEngine{id: "remote-ocr", res: Result{Text: "ban nhan dang thu nhat", Confidence: 30}}
	mid := &stubEngine{id: "tesseract", res: Result{Text: "ban nhan dang thu hai", Confidence: 45}}
	chain := NewChain(ChainConfig{Engines: []Engine{low, mid}}, nil)

	res, _, err := chain.Recognize(context.Background(), []byte("img"), "vie")
	require.NoError(t, err)
	assert.Equal(t, "tesseract", res.EngineID)
	assert.Equal(t, 45.0, res.Confidence)
}

func TestChainTotalFailure(t *testing.T) {
	a := &stubEngine{id: "remote-ocr", err: errors.New("down")}
	b := &stubEngine{id: "tesseract", res: Result{Text: "", Confidence: 0}}
	chain := NewChain(ChainConfig{Engines: []Engine{a, b}}, nil)

	_, attempts, err := chain.Recognize(context.Background(), []byte("img"), "vie")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNoTextExtracted)
	assert.Len(t, attempts, 2)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.CodeNoTextExtracted, appErr.Code)
}

func TestChainNoEngines(t *testing.T) {
	chain := NewChain(ChainConfig{}, nil)
	_, _, err := chain.Recognize(context.Background(), []byte("img"), "vie")
	require.Error(t, err)
}

func TestSyntheticEngineIsDeterministic(t *testing.T) {
	eng := NewSyntheticEngine()
	r1, err := eng.Recognize(context.Background(), []byte("a"), "vie")
	require.NoError(t, err)
	r2, err := eng.Recognize(context.Background(), []byte("b"), "vie")
	require.NoError(t, err)
	assert.Equal(t, r1.Text, r2.Text)
	assert.Equal(t, SyntheticEngineID, r1.EngineID)
	assert.Less(t, r1.Confidence, 60.0)
}
