package normalize

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCleaner struct {
	text         string
	improvements []string
	err          error
	calls        int
}

func (s *stubCleaner) Clean(context.Context, string) (string, []string, error) {
	s.calls++
	return s.text, s.improvements, s.err
}

func TestNormalizerPrefersRemote(t *testing.T) {
	remote := &stubCleaner{text: "van ban da duoc sua loi chinh ta", improvements: []string{"spelling"}}
	n := NewNormalizer(remote, nil)

	out := n.Normalize(context.Background(), "van ban tho co loi chinh ta")
	assert.Equal(t, SourceRemote, out.Source)
	assert.Equal(t, "van ban da duoc sua loi chinh ta", out.Text)
	assert.Equal(t, []string{"spelling"}, out.Corrections)
	assert.False(t, out.Degraded)
}

func TestNormalizerFallsBackOnRemoteError(t *testing.T) {
	remote := &stubCleaner{err: errors.New("connection refused")}
	n := NewNormalizer(remote, nil)

	out := n.Normalize(context.Background(), "CONG  HOA XA HOI CHU NGHIA VIET NAM")
	assert.Equal(t, SourceLocal, out.Source)
	assert.True(t, out.Degraded)
	assert.Contains(t, out.Text, "CỘNG HÒA XÃ HỘI CHỦ NGHĨA VIỆT NAM")
}

func TestNormalizerDiscardsCollapsedRemoteAnswer(t *testing.T) {
	input := strings.Repeat("noi dung van ban dai ", 20)
	remote := &stubCleaner{text: "ngan"} // under a fifth of the input
	n := NewNormalizer(remote, nil)

	out := n.Normalize(context.Background(), input)
	assert.Equal(t, SourceLocal, out.Source)
	assert.True(t, out.Degraded)
	assert.NotEqual(t, "ngan", out.Text)
}

func TestNormalizerWithoutRemoteIsNotDegraded(t *testing.T) {
	n := NewNormalizer(nil, nil)
	out := n.Normalize(context.Background(), "van ban  don gian")
	assert.Equal(t, SourceLocal, out.Source)
	assert.False(t, out.Degraded)
	assert.Equal(t, "van ban don gian", out.Text)
}

func TestNormalizerEmptyInput(t *testing.T) {
	remote := &stubCleaner{}
	n := NewNormalizer(remote, nil)
	out := n.Normalize(context.Background(), "   \n ")
	assert.Empty(t, out.Text)
	assert.Equal(t, 0, remote.calls)
}

func TestCleanLocalWhitespace(t *testing.T) {
	in := "dong mot\r\n\r\n\r\n\r\ndong\thai   co  khoang  trang   \n"
	out, _ := CleanLocal(in)
	assert.Equal(t, "dong mot\n\ndong hai co khoang trang", out)
}

func TestCleanLocalRestoresCanonicalPhrases(t *testing.T) {
	in := "cong hoa xa hoi chu nghia viet nam\nDoc lap - Tu do - Hanh phuc\nHo va ten: TRAN THI B"
	out, corrections := CleanLocal(in)
	assert.Contains(t, out, "CỘNG HÒA XÃ HỘI CHỦ NGHĨA VIỆT NAM")
	assert.Contains(t, out, "Độc lập - Tự do - Hạnh phúc")
	assert.Contains(t, out, "Họ và tên: TRAN THI B")
	assert.NotEmpty(t, corrections)
}

func TestCleanLocalFixesDatesAndIDs(t *testing.T) {
	in := "Ngay sinh: 01.02-1990\nSo: 012 345 678 901"
	out, _ := CleanLocal(in)
	assert.Contains(t, out, "01/02/1990")
	assert.Contains(t, out, "012345678901")
}

func TestCleanLocalRemovesBoxNoise(t *testing.T) {
	in := "tieu de\n______\nnoi dung\n-----"
	out, corrections := CleanLocal(in)
	assert.NotContains(t, out, "______")
	assert.NotContains(t, out, "-----")
	require.NotEmpty(t, corrections)
	assert.Contains(t, corrections[0], "box-line noise")
}
