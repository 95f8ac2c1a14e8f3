package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type flakyEmbedder struct {
	calls    int
	failures int
	err      error
}

func (f *flakyEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}

func (f *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (f *flakyEmbedder) ModelName() string { return "fake" }

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func TestRetryEmbedderRecoversFromTransientFailures(t *testing.T) {
	fake := &flakyEmbedder{failures: 2, err: ErrUnavailable}
	wrapped := WrapRetryToEmbedder(fake, RetryConfig{MaxRetries: 3}).(*retryEmbedder)
	wrapped.sleep = noSleep

	vec, err := wrapped.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, []float32{1, 0}, vec)
	require.Equal(t, 3, fake.calls)
}

func TestRetryEmbedderGivesUpAfterMaxRetries(t *testing.T) {
	fake := &flakyEmbedder{failures: 10, err: ErrRateLimited}
	wrapped := WrapRetryToEmbedder(fake, RetryConfig{MaxRetries: 2}).(*retryEmbedder)
	wrapped.sleep = noSleep

	_, err := wrapped.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.ErrorIs(t, err, ErrRateLimited)
	require.Equal(t, 3, fake.calls)
}

func TestRetryEmbedderDoesNotRetryInvalidInput(t *testing.T) {
	fake := &flakyEmbedder{failures: 10, err: ErrInvalidInput}
	wrapped := WrapRetryToEmbedder(fake, RetryConfig{MaxRetries: 5}).(*retryEmbedder)
	wrapped.sleep = noSleep

	_, err := wrapped.Embed(context.Background(), "hello", "RETRIEVAL_DOCUMENT")
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Equal(t, 1, fake.calls)
}

func TestEmbedderRejectsEmptyInput(t *testing.T) {
	e := NewEmbedder(&openAIEmbedProvider{}, "m", 100)
	_, err := e.Embed(context.Background(), "   ", "RETRIEVAL_QUERY")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestEmbedderRejectsOversizedInput(t *testing.T) {
	e := NewEmbedder(&openAIEmbedProvider{}, "m", 4)
	_, err := e.Embed(context.Background(), "hello", "RETRIEVAL_QUERY")
	require.ErrorIs(t, err, ErrInvalidInput)
}
