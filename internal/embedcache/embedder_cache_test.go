package embedcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forgelabs/scriptforge/internal/storage"
)

type countingEmbedder struct {
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	c.calls++
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	c.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (c *countingEmbedder) ModelName() string { return "counting" }

func TestStoreCacheSkipsRepeatEmbeds(t *testing.T) {
	ctx := context.Background()
	fake := &countingEmbedder{}
	wrapped := WrapStoreCacheToEmbedder(fake, storage.NewMemory())

	first, err := wrapped.Embed(ctx, "same text", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	second, err := wrapped.Embed(ctx, "same text", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, fake.calls)

	// a different task type is a different cache row
	_, err = wrapped.Embed(ctx, "same text", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, 2, fake.calls)
}

func TestStoreCacheBatchOnlyEmbedsMisses(t *testing.T) {
	ctx := context.Background()
	fake := &countingEmbedder{}
	wrapped := WrapStoreCacheToEmbedder(fake, storage.NewMemory())

	_, err := wrapped.Embed(ctx, "aa", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, 1, fake.calls)

	got, err := wrapped.EmbedBatch(ctx, []string{"aa", "bbb"}, "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, []float32{2, 1}, got[0])
	require.Equal(t, []float32{3, 1}, got[1])
	require.Equal(t, 2, fake.calls)

	// everything cached now, no provider call at all
	_, err = wrapped.EmbedBatch(ctx, []string{"aa", "bbb"}, "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, 2, fake.calls)
}

func TestLruCacheShortcutsHotQueries(t *testing.T) {
	ctx := context.Background()
	fake := &countingEmbedder{}
	wrapped := WrapLruCacheToEmbedder(fake, 16, time.Minute)

	first, err := wrapped.Embed(ctx, "what is go", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	second, err := wrapped.Embed(ctx, "what is go", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, fake.calls)

	// returned slices are copies, mutating one must not poison the cache
	first[0] = -99
	third, err := wrapped.Embed(ctx, "what is go", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, second, third)
}

func TestLruCacheDisabledPassesThrough(t *testing.T) {
	fake := &countingEmbedder{}
	require.Same(t, fake, WrapLruCacheToEmbedder(fake, 0, time.Minute))
}
