package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/constants"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/common"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/imaging"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/ocr"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/raster"
)

type stubStructural struct {
	text  string
	pages int
	err   error
	calls int
}

func (s *stubStructural) ExtractText(context.Context, string) (string, int, error) {
	s.calls++
	return s.text, s.pages, s.err
}

type stubRasterizer struct {
	pages []raster.Page
	err   error
	calls int32
}

func (s *stubRasterizer) RasterizePDF(context.Context, string) ([]raster.Page, func(), error) {
	atomic.AddInt32(&s.calls, 1)
	return s.pages, func() {}, s.err
}

// stubChain answers with the page bytes as text; an optional per-page delay
// exercises out-of-order completion.
type stubChain struct {
	delays map[string]time.Duration
	conf   float64
	err    error
}

func (s *stubChain) Recognize(ctx context.Context, image []byte, _ string) (ocr.Result, []ocr.Attempt, error) {
	if d, ok := s.delays[string(image)]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ocr.Result{}, nil, ctx.Err()
		}
	}
	if s.err != nil {
		return ocr.Result{}, nil, s.err
	}
	conf := s.conf
	if conf == 0 {
		conf = 80
	}
	return ocr.Result{Text: string(image), Confidence: conf, EngineID: "tesseract"}, nil, nil
}

func writePages(t *testing.T, contents ...string) []raster.Page {
	t.Helper()
	dir := t.TempDir()
	pages := make([]raster.Page, len(contents))
	for i, c := range contents {
		path := filepath.Join(dir, fmt.Sprintf("page-%d.png", i+1))
		require.NoError(t, os.WriteFile(path, []byte(c), 0o600))
		pages[i] = raster.Page{Number: i + 1, Path: path}
	}
	return pages
}

func newTestSelector(structural *stubStructural, rasterizer *stubRasterizer, chain Recognizer) *Selector {
	opts := imaging.Options{} // pass bytes through untouched
	return NewSelector(Config{}, structural, rasterizer, chain, opts, nil)
}

func TestStructuralTextShortCircuitsOCR(t *testing.T) {
	longText := strings.Repeat("van ban nhung ", 20)
	structural := &stubStructural{text: longText, pages: 3}
	rasterizer := &stubRasterizer{}
	sel := newTestSelector(structural, rasterizer, &stubChain{})

	res, err := sel.Extract(context.Background(), "/tmp/doc.pdf", "application/pdf", "vie")
	require.NoError(t, err)
	assert.Equal(t, constants.MethodTextExtraction, res.Method)
	assert.Equal(t, 95.0, res.Confidence)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, int32(0), rasterizer.calls, "no rasterization for text PDFs")
}

func TestImageAlwaysGoesThroughOCR(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.png")
	require.NoError(t, os.WriteFile(path, []byte("noi dung trang quet"), 0o600))

	structural := &stubStructural{}
	sel := newTestSelector(structural, &stubRasterizer{}, &stubChain{})

	res, err := sel.Extract(context.Background(), path, "image/png", "vie")
	require.NoError(t, err)
	assert.Equal(t, constants.MethodOCR, res.Method)
	assert.Equal(t, "noi dung trang quet", res.Text)
	assert.Equal(t, 0, structural.calls)
}

func TestUnsupportedFormatRejected(t *testing.T) {
	sel := newTestSelector(&stubStructural{}, &stubRasterizer{}, &stubChain{})
	_, err := sel.Extract(context.Background(), "/tmp/doc.docx", "application/msword", "vie")
	require.Error(t, err)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.CodeUnsupportedFormat, appErr.Code)
}

func TestHybridMergesPartialStructuralText(t *testing.T) {
	partial := "Ho va ten: NGUYEN VAN A" // above the merge floor, below sufficiency
	structural := &stubStructural{text: partial, pages: 1}
	rasterizer := &stubRasterizer{pages: writePages(t, "phan noi dung quet duoc")}
	sel := newTestSelector(structural, rasterizer, &stubChain{conf: 50})

	res, err := sel.Extract(context.Background(), "/tmp/doc.pdf", "application/pdf", "vie")
	require.NoError(t, err)
	assert.Equal(t, constants.MethodHybrid, res.Method)
	assert.True(t, strings.HasPrefix(res.Text, partial))
	assert.Contains(t, res.Text, "phan noi dung quet duoc")
	// hybrid takes the stronger of the two paths
	assert.Equal(t, 60.0, res.Confidence)
}

func TestStructuralSufficiencyCountsCharactersNotBytes(t *testing.T) {
	// 71 characters but 116 bytes: a byte comparison would wrongly treat
	// this as sufficient and skip the scanned pages entirely
	partial := strings.TrimSpace(strings.Repeat("Độc lập ", 9))
	structural := &stubStructural{text: partial, pages: 1}
	rasterizer := &stubRasterizer{pages: writePages(t, "noi dung quet tu trang")}
	sel := newTestSelector(structural, rasterizer, &stubChain{conf: 80})

	res, err := sel.Extract(context.Background(), "/tmp/doc.pdf", "application/pdf", "vie")
	require.NoError(t, err)
	assert.Equal(t, constants.MethodHybrid, res.Method)
	assert.Equal(t, int32(1), rasterizer.calls)
	assert.Contains(t, res.Text, "noi dung quet tu trang")
}

func TestRasterizationFailureIsFatal(t *testing.T) {
	structural := &stubStructural{text: "ngan", pages: 1}
	rasterizer := &stubRasterizer{err: common.RasterizationError("malformed or unreadable PDF", nil)}
	sel := newTestSelector(structural, rasterizer, &stubChain{})

	_, err := sel.Extract(context.Background(), "/tmp/doc.pdf", "application/pdf", "vie")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrRasterization)
}

func TestOCRFailureRetainsPartialStructuralText(t *testing.T) {
	partial := "Quyet dinh so 123/QD-UBND ngay 1 thang 2"
	structural := &stubStructural{text: partial, pages: 1}
	rasterizer := &stubRasterizer{pages: writePages(t, "anything")}
	sel := newTestSelector(structural, rasterizer,
		&stubChain{err: common.NoTextExtractedError("all engines exhausted")})

	res, err := sel.Extract(context.Background(), "/tmp/doc.pdf", "application/pdf", "vie")
	require.NoError(t, err)
	assert.Equal(t, constants.MethodTextExtraction, res.Method)
	assert.Equal(t, partial, res.Text)
	assert.Equal(t, 60.0, res.Confidence)
	assert.NotEmpty(t, res.Warnings)
}

func TestOCRTotalFailureWithoutStructuralText(t *testing.T) {
	structural := &stubStructural{}
	rasterizer := &stubRasterizer{pages: writePages(t, "p1", "p2")}
	sel := newTestSelector(structural, rasterizer,
		&stubChain{err: common.NoTextExtractedError("all engines exhausted")})

	_, err := sel.Extract(context.Background(), "/tmp/doc.pdf", "application/pdf", "vie")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNoTextExtracted)
}

func TestPagesMergedInOrderDespiteCompletionOrder(t *testing.T) {
	contents := []string{"trang mot", "trang hai", "trang ba"}
	pages := writePages(t, contents...)
	// later pages finish first
	chain := &stubChain{delays: map[string]time.Duration{
		"trang mot": 60 * time.Millisecond,
		"trang hai": 30 * time.Millisecond,
		"trang ba":  0,
	}}
	sel := newTestSelector(&stubStructural{}, &stubRasterizer{pages: pages}, chain)

	res, err := sel.Extract(context.Background(), "/tmp/doc.pdf", "application/pdf", "vie")
	require.NoError(t, err)

	posA := strings.Index(res.Text, "trang mot")
	posB := strings.Index(res.Text, "trang hai")
	posC := strings.Index(res.Text, "trang ba")
	require.True(t, posA >= 0 && posB >= 0 && posC >= 0)
	assert.Less(t, posA, posB)
	assert.Less(t, posB, posC)
	assert.Contains(t, res.Text, "=== TRANG 1 ===")
	assert.Contains(t, res.Text, "\f")
}

func TestPageTempFilesRemovedAfterOCR(t *testing.T) {
	pages := writePages(t, "noi dung")
	sel := newTestSelector(&stubStructural{}, &stubRasterizer{pages: pages}, &stubChain{})

	_, err := sel.Extract(context.Background(), "/tmp/doc.pdf", "application/pdf", "vie")
	require.NoError(t, err)
	_, statErr := os.Stat(pages[0].Path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPartialPageFailureTolerated(t *testing.T) {
	pages := writePages(t, "trang tot", "trang hong")
	chain := &stubChain{}
	// second page fails: the chain stub errors only for its bytes
	failing := &selectiveChain{inner: chain, failOn: "trang hong"}
	sel := newTestSelector(&stubStructural{}, &stubRasterizer{pages: pages}, failing)

	res, err := sel.Extract(context.Background(), "/tmp/doc.pdf", "application/pdf", "vie")
	require.NoError(t, err)
	assert.Equal(t, 1, res.PagesFailed)
	assert.Contains(t, res.Text, "trang tot")
	assert.NotEmpty(t, res.Warnings)
}

type selectiveChain struct {
	inner  *stubChain
	failOn string
}

func (s *selectiveChain) Recognize(ctx context.Context, image []byte, lang string) (ocr.Result, []ocr.Attempt, error) {
	if string(image) == s.failOn {
		return ocr.Result{}, nil, common.NoTextExtractedError("page unreadable")
	}
	return s.inner.Recognize(ctx, image, lang)
}
