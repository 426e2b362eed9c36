package service

import (
	"context"
	"errors"
	"testing"

	"proctorhub/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply  string
	err    error
	system string
}

func (f *fakeCompleter) Complete(_ context.Context, system, _ string) (string, error) {
	f.system = system
	return f.reply, f.err
}

func TestParaphrase(t *testing.T) {
	c := &fakeCompleter{reply: "The cat rested on the rug."}
	s := NewTextToolsService(c, "test-model")

	resp, err := s.Paraphrase(context.Background(), &TextRequest{Text: "The cat sat on the mat."})
	require.NoError(t, err)
	assert.Equal(t, "The cat rested on the rug.", resp.Result)
}

func TestParaphraseStyleChangesPrompt(t *testing.T) {
	c := &fakeCompleter{reply: "ok"}
	s := NewTextToolsService(c, "test-model")

	_, err := s.Paraphrase(context.Background(), &TextRequest{Text: "hello there", Style: "academic"})
	require.NoError(t, err)
	assert.Contains(t, c.system, "academic")

	_, err = s.Paraphrase(context.Background(), &TextRequest{Text: "hello", Style: "sarcastic"})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestTextRequestValidation(t *testing.T) {
	s := NewTextToolsService(&fakeCompleter{reply: "ok"}, "test-model")
	ctx := context.Background()

	_, err := s.GrammarCheck(ctx, &TextRequest{Text: ""})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = s.DetectAI(ctx, &TextRequest{Text: ""})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestUpstreamFailureIsErrUpstream(t *testing.T) {
	s := NewTextToolsService(&fakeCompleter{err: errors.New("502 bad gateway")}, "test-model")

	_, err := s.Humanize(context.Background(), &TextRequest{Text: "some text"})
	assert.ErrorIs(t, err, common.ErrUpstream)
	assert.Equal(t, 502, common.HTTPStatusFromError(err))
}

func TestUpstreamTimeoutIsErrUpstream(t *testing.T) {
	s := NewTextToolsService(&fakeCompleter{err: context.DeadlineExceeded}, "test-model")

	_, err := s.GrammarCheck(context.Background(), &TextRequest{Text: "some text"})
	assert.ErrorIs(t, err, common.ErrUpstream)
}

func TestDetectAIParsesVerdict(t *testing.T) {
	c := &fakeCompleter{reply: `{"verdict": "human", "confidence": 0.8, "evidence": ["varied cadence"]}`}
	s := NewTextToolsService(c, "test-model")

	verdict, err := s.DetectAI(context.Background(), &TextRequest{Text: "An essay."})
	require.NoError(t, err)
	assert.Equal(t, "human", verdict.Verdict)
	assert.Equal(t, 0.8, verdict.Confidence)
	assert.Equal(t, "test-model", verdict.Model)
}

func TestDetectAIUnparseableReplyIsUpstreamError(t *testing.T) {
	s := NewTextToolsService(&fakeCompleter{reply: "not json"}, "test-model")

	_, err := s.DetectAI(context.Background(), &TextRequest{Text: "An essay."})
	assert.ErrorIs(t, err, common.ErrUpstream)
}
