package storage

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/forgelabs/scriptforge/internal/model"
	appErr "github.com/forgelabs/scriptforge/internal/pkg/errors"
)

func init() {
	Register("memory", func(args interface{}) (Store, error) {
		return NewMemory(), nil
	})
}

type memoryEntry struct {
	entry model.IndexEntry
	seq   int64
}

// memoryStore keeps the whole index in process memory. Search is a brute
// force cosine scan, which is fine for the corpus sizes a single research
// session produces. It also backs the test suites of the layers above.
type memoryStore struct {
	mu           sync.RWMutex
	seq          int64
	fingerprints map[string]model.Fingerprint
	entries      map[string]*memoryEntry // chunk id -> entry
	cache        map[string]model.EmbeddingCache
}

func NewMemory() Store {
	return &memoryStore{
		fingerprints: make(map[string]model.Fingerprint),
		entries:      make(map[string]*memoryEntry),
		cache:        make(map[string]model.EmbeddingCache),
	}
}

func (m *memoryStore) Fingerprint(ctx context.Context, sourceID string) (*model.Fingerprint, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fp, ok := m.fingerprints[sourceID]
	if !ok {
		return nil, false, nil
	}
	out := fp
	return &out, true, nil
}

func (m *memoryStore) ListFingerprints(ctx context.Context) ([]model.Fingerprint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Fingerprint, 0, len(m.fingerprints))
	for _, fp := range m.fingerprints {
		out = append(out, fp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out, nil
}

func (m *memoryStore) EntriesBySource(ctx context.Context, sourceID string) ([]model.IndexEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var picked []*memoryEntry
	for _, e := range m.entries {
		if e.entry.SourceID == sourceID {
			picked = append(picked, e)
		}
	}
	sort.Slice(picked, func(i, j int) bool { return picked[i].seq < picked[j].seq })
	out := make([]model.IndexEntry, 0, len(picked))
	for _, e := range picked {
		out = append(out, e.entry)
	}
	return out, nil
}

func (m *memoryStore) ReplaceSource(ctx context.Context, input ReplaceSourceInput) error {
	sourceID := input.Fingerprint.SourceID
	if sourceID == "" {
		return fmt.Errorf("%w: fingerprint source_id is required", appErr.ErrInvalid)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	keep := make(map[string]struct{}, len(input.Entries))
	for _, e := range input.Entries {
		keep[e.ChunkID] = struct{}{}
	}
	for id, e := range m.entries {
		if e.entry.SourceID != sourceID {
			continue
		}
		if _, ok := keep[id]; !ok {
			delete(m.entries, id)
		}
	}
	for _, e := range input.Entries {
		if prev, ok := m.entries[e.ChunkID]; ok {
			// keep the original insertion position on upsert
			prev.entry = e
			continue
		}
		m.seq++
		m.entries[e.ChunkID] = &memoryEntry{entry: e, seq: m.seq}
	}
	m.fingerprints[sourceID] = input.Fingerprint
	return nil
}

func (m *memoryStore) DeleteSource(ctx context.Context, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.entries {
		if e.entry.SourceID == sourceID {
			delete(m.entries, id)
		}
	}
	delete(m.fingerprints, sourceID)
	return nil
}

func (m *memoryStore) Search(ctx context.Context, vector []float32, topK int, filter *Filter) ([]model.ScoredEntry, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive", appErr.ErrInvalid)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: query vector is empty", appErr.ErrInvalid)
	}
	var allowed map[string]struct{}
	if filter != nil && len(filter.SourceIDs) > 0 {
		allowed = make(map[string]struct{}, len(filter.SourceIDs))
		for _, id := range filter.SourceIDs {
			allowed[id] = struct{}{}
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	type scored struct {
		entry model.IndexEntry
		seq   int64
		score float32
	}
	var candidates []scored
	for _, e := range m.entries {
		if allowed != nil {
			if _, ok := allowed[e.entry.SourceID]; !ok {
				continue
			}
		}
		candidates = append(candidates, scored{
			entry: e.entry,
			seq:   e.seq,
			score: CosineSimilarity(vector, e.entry.Embedding),
		})
	}
	// equal scores rank by insertion order
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].seq < candidates[j].seq
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	out := make([]model.ScoredEntry, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, model.ScoredEntry{Entry: c.entry, Score: c.score})
	}
	return out, nil
}

func (m *memoryStore) CachedEmbedding(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.cache[cacheKey(modelName, taskType, contentHash)]
	if !ok {
		return nil, false, nil
	}
	return item.Embedding, true, nil
}

func (m *memoryStore) SaveCachedEmbedding(ctx context.Context, item *model.EmbeddingCache) error {
	if item == nil {
		return fmt.Errorf("%w: nil cache item", appErr.ErrInvalid)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[cacheKey(item.ModelName, item.TaskType, item.ContentHash)] = *item
	return nil
}

func (m *memoryStore) PurgeCachedEmbeddings(ctx context.Context, cutoff int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for key, item := range m.cache {
		if item.Ctime < cutoff {
			delete(m.cache, key)
			removed++
		}
	}
	return removed, nil
}

func (m *memoryStore) Close() error {
	return nil
}

func cacheKey(modelName, taskType, contentHash string) string {
	return modelName + "|" + taskType + "|" + contentHash
}

// CosineSimilarity returns 0 for mismatched or zero-norm vectors so broken
// embeddings sink to the bottom instead of failing the query.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
