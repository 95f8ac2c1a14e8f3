package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgelabs/scriptforge/internal/model"
	appErr "github.com/forgelabs/scriptforge/internal/pkg/errors"
)

func entry(chunkID, sourceID, text string, vec []float32) model.IndexEntry {
	return model.IndexEntry{
		ChunkID:     chunkID,
		SourceID:    sourceID,
		Text:        text,
		ContentHash: "hash-" + chunkID,
		Embedding:   vec,
		Ctime:       1000,
	}
}

func TestMemoryReplaceSourceSwapsFingerprintAndEntries(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()

	err := st.ReplaceSource(ctx, ReplaceSourceInput{
		Fingerprint: model.Fingerprint{SourceID: "wiki-go", ContentHash: "h1", ChunkCount: 2, LastProcessedAt: 1},
		Entries: []model.IndexEntry{
			entry("c1", "wiki-go", "first", []float32{1, 0}),
			entry("c2", "wiki-go", "second", []float32{0, 1}),
		},
	})
	require.NoError(t, err)

	fp, ok, err := st.Fingerprint(ctx, "wiki-go")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "h1", fp.ContentHash)
	require.Equal(t, 2, fp.ChunkCount)

	// re-ingest with one chunk replaced: c2 goes away, c3 arrives
	err = st.ReplaceSource(ctx, ReplaceSourceInput{
		Fingerprint: model.Fingerprint{SourceID: "wiki-go", ContentHash: "h2", ChunkCount: 2, LastProcessedAt: 2},
		Entries: []model.IndexEntry{
			entry("c1", "wiki-go", "first", []float32{1, 0}),
			entry("c3", "wiki-go", "third", []float32{0.5, 0.5}),
		},
	})
	require.NoError(t, err)

	entries, err := st.EntriesBySource(ctx, "wiki-go")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	ids := []string{entries[0].ChunkID, entries[1].ChunkID}
	require.Equal(t, []string{"c1", "c3"}, ids)

	fp, ok, err = st.Fingerprint(ctx, "wiki-go")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "h2", fp.ContentHash)
}

func TestMemoryReplaceSourceLeavesOtherSourcesAlone(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()

	require.NoError(t, st.ReplaceSource(ctx, ReplaceSourceInput{
		Fingerprint: model.Fingerprint{SourceID: "a", ContentHash: "ha", ChunkCount: 1},
		Entries:     []model.IndexEntry{entry("a1", "a", "alpha", []float32{1, 0})},
	}))
	require.NoError(t, st.ReplaceSource(ctx, ReplaceSourceInput{
		Fingerprint: model.Fingerprint{SourceID: "b", ContentHash: "hb", ChunkCount: 1},
		Entries:     []model.IndexEntry{entry("b1", "b", "beta", []float32{0, 1})},
	}))
	require.NoError(t, st.ReplaceSource(ctx, ReplaceSourceInput{
		Fingerprint: model.Fingerprint{SourceID: "a", ContentHash: "ha2", ChunkCount: 1},
		Entries:     []model.IndexEntry{entry("a2", "a", "alpha v2", []float32{1, 1})},
	}))

	entries, err := st.EntriesBySource(ctx, "b")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "b1", entries[0].ChunkID)
}

func TestMemorySearchRanksByCosineSimilarity(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()

	require.NoError(t, st.ReplaceSource(ctx, ReplaceSourceInput{
		Fingerprint: model.Fingerprint{SourceID: "s", ContentHash: "h", ChunkCount: 3},
		Entries: []model.IndexEntry{
			entry("far", "s", "unrelated", []float32{0, 1}),
			entry("near", "s", "on topic", []float32{1, 0}),
			entry("mid", "s", "somewhat", []float32{1, 1}),
		},
	}))

	got, err := st.Search(ctx, []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "near", got[0].Entry.ChunkID)
	require.Equal(t, "mid", got[1].Entry.ChunkID)
	require.Greater(t, got[0].Score, got[1].Score)
}

func TestMemorySearchBreaksTiesByInsertionOrder(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()

	require.NoError(t, st.ReplaceSource(ctx, ReplaceSourceInput{
		Fingerprint: model.Fingerprint{SourceID: "s", ContentHash: "h", ChunkCount: 3},
		Entries: []model.IndexEntry{
			entry("first", "s", "one", []float32{2, 0}),
			entry("second", "s", "two", []float32{5, 0}),
			entry("third", "s", "three", []float32{0, 1}),
		},
	}))

	// first and second are colinear with the query: identical scores
	got, err := st.Search(ctx, []float32{1, 0}, 3, nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "first", got[0].Entry.ChunkID)
	require.Equal(t, "second", got[1].Entry.ChunkID)
	require.Equal(t, got[0].Score, got[1].Score)
}

func TestMemorySearchSourceFilter(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()

	require.NoError(t, st.ReplaceSource(ctx, ReplaceSourceInput{
		Fingerprint: model.Fingerprint{SourceID: "a", ContentHash: "h", ChunkCount: 1},
		Entries:     []model.IndexEntry{entry("a1", "a", "alpha", []float32{1, 0})},
	}))
	require.NoError(t, st.ReplaceSource(ctx, ReplaceSourceInput{
		Fingerprint: model.Fingerprint{SourceID: "b", ContentHash: "h", ChunkCount: 1},
		Entries:     []model.IndexEntry{entry("b1", "b", "beta", []float32{1, 0})},
	}))

	got, err := st.Search(ctx, []float32{1, 0}, 10, &Filter{SourceIDs: []string{"b"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "b1", got[0].Entry.ChunkID)
}

func TestMemorySearchValidation(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()

	_, err := st.Search(ctx, []float32{1}, 0, nil)
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = st.Search(ctx, []float32{1}, -3, nil)
	require.ErrorIs(t, err, appErr.ErrInvalid)

	got, err := st.Search(ctx, []float32{1}, 5, nil)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestMemoryEmbeddingCacheRoundTripAndPurge(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()

	require.NoError(t, st.SaveCachedEmbedding(ctx, &model.EmbeddingCache{
		ModelName: "m", TaskType: "RETRIEVAL_DOCUMENT", ContentHash: "h1",
		Embedding: []float32{0.25, 0.75}, Ctime: 100,
	}))
	require.NoError(t, st.SaveCachedEmbedding(ctx, &model.EmbeddingCache{
		ModelName: "m", TaskType: "RETRIEVAL_DOCUMENT", ContentHash: "h2",
		Embedding: []float32{1, 0}, Ctime: 300,
	}))

	vec, ok, err := st.CachedEmbedding(ctx, "m", "RETRIEVAL_DOCUMENT", "h1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float32{0.25, 0.75}, vec)

	_, ok, err = st.CachedEmbedding(ctx, "other", "RETRIEVAL_DOCUMENT", "h1")
	require.NoError(t, err)
	require.False(t, ok)

	removed, err := st.PurgeCachedEmbeddings(ctx, 200)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	_, ok, err = st.CachedEmbedding(ctx, "m", "RETRIEVAL_DOCUMENT", "h1")
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = st.CachedEmbedding(ctx, "m", "RETRIEVAL_DOCUMENT", "h2")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCosineSimilarity(t *testing.T) {
	require.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-6)
	require.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	require.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	require.EqualValues(t, 0, CosineSimilarity([]float32{1, 0}, []float32{1}))
	require.EqualValues(t, 0, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
