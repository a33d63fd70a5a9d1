package ocr

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRunner answers each invocation from a queue and records the calls.
type scriptedRunner struct {
	replies []runnerReply
	calls   [][]string
}

type runnerReply struct {
	stdout string
	stderr string
	err    error
}

func (s *scriptedRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, append([]string{name}, args...))
	if len(s.replies) == 0 {
		return nil, nil, errors.New("no scripted reply")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return []byte(r.stdout), []byte(r.stderr), r.err
}

const tsvHeader = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext"

func tsvRow(conf, text string) string {
	return strings.Join([]string{"5", "1", "1", "1", "1", "1", "10", "10", "40", "12", conf, text}, "\t")
}

func TestTesseractRecognize(t *testing.T) {
	runner := &scriptedRunner{replies: []runnerReply{
		{stdout: "Ho va ten: NGUYEN VAN A\n------\n"},
		{stdout: strings.Join([]string{tsvHeader, tsvRow("80", "Ho"), tsvRow("90", "va"), tsvRow("-1", ""), tsvRow("70", "ten")}, "\n")},
	}}
	eng := NewTesseractEngine(TesseractConfig{}, runner, nil)

	res, err := eng.Recognize(context.Background(), []byte("img"), "vie")
	require.NoError(t, err)
	assert.Equal(t, "Ho va ten: NGUYEN VAN A", res.Text)
	assert.InDelta(t, 80.0, res.Confidence, 1e-9)
	assert.Equal(t, "tesseract", res.EngineID)

	require.Len(t, runner.calls, 2)
	first := runner.calls[0]
	assert.Equal(t, "tesseract", first[0])
	assert.Contains(t, first, "stdout")
	assert.Contains(t, first, "vie")
	assert.Contains(t, first, "--psm")
	assert.Contains(t, first, "preserve_interword_spaces=1")
	assert.Equal(t, "tsv", runner.calls[1][len(runner.calls[1])-1])
}

func TestTesseractMissingLanguageFallsBackToEnglish(t *testing.T) {
	runner := &scriptedRunner{replies: []runnerReply{
		{err: errors.New("exit status 1"), stderr: "Failed loading language 'vie'"},
		{stdout: "english only output\n"},
		{stdout: tsvHeader + "\n" + tsvRow("75", "english")},
	}}
	eng := NewTesseractEngine(TesseractConfig{}, runner, nil)

	res, err := eng.Recognize(context.Background(), []byte("img"), "vie")
	require.NoError(t, err)
	assert.Equal(t, "english only output", res.Text)

	require.Len(t, runner.calls, 3)
	assert.Contains(t, runner.calls[1], "eng")
}

func TestTesseractTSVFailureDegradesToZeroConfidence(t *testing.T) {
	runner := &scriptedRunner{replies: []runnerReply{
		{stdout: "van ban\n"},
		{err: errors.New("exit status 1")},
	}}
	eng := NewTesseractEngine(TesseractConfig{}, runner, nil)

	res, err := eng.Recognize(context.Background(), []byte("img"), "vie")
	require.NoError(t, err)
	assert.Equal(t, "van ban", res.Text)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestTesseractHardFailure(t *testing.T) {
	runner := &scriptedRunner{replies: []runnerReply{
		{err: errors.New("exit status 1"), stderr: "Error in pixReadStream"},
	}}
	eng := NewTesseractEngine(TesseractConfig{}, runner, nil)

	_, err := eng.Recognize(context.Background(), []byte("img"), "eng")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tesseract")
}
