package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/forgelabs/scriptforge/internal/model"
)

// Filter restricts a similarity query to a set of sources.
type Filter struct {
	SourceIDs []string
}

// ReplaceSourceInput carries the full post-ingestion state for one source:
// the new fingerprint and the complete entry set. The store drops entries
// whose chunk id is not in the set, upserts the rest, and swaps the
// fingerprint, all in one commit.
type ReplaceSourceInput struct {
	Fingerprint model.Fingerprint
	Entries     []model.IndexEntry
}

// Store is the persistence layer behind the ingestion coordinator and the
// retrieval service: fingerprint records, the vector index, and the durable
// embedding cache. A concurrent Search never observes a half-replaced
// source.
type Store interface {
	Fingerprint(ctx context.Context, sourceID string) (*model.Fingerprint, bool, error)
	ListFingerprints(ctx context.Context) ([]model.Fingerprint, error)
	EntriesBySource(ctx context.Context, sourceID string) ([]model.IndexEntry, error)
	ReplaceSource(ctx context.Context, input ReplaceSourceInput) error
	DeleteSource(ctx context.Context, sourceID string) error
	Search(ctx context.Context, vector []float32, topK int, filter *Filter) ([]model.ScoredEntry, error)

	CachedEmbedding(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error)
	SaveCachedEmbedding(ctx context.Context, item *model.EmbeddingCache) error
	PurgeCachedEmbeddings(ctx context.Context, cutoff int64) (int64, error)

	Close() error
}

type Factory func(args interface{}) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(typ string, args interface{}) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(typ))
	if key == "" {
		return nil, fmt.Errorf("storage.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported storage type: %s", typ)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode storage config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode storage config: %w", err)
	}
	return nil
}
