package embedcache

import (
	"context"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/forgelabs/scriptforge/internal/ai"
	"github.com/forgelabs/scriptforge/internal/chunker"
	"github.com/forgelabs/scriptforge/internal/model"
	"github.com/forgelabs/scriptforge/internal/storage"
)

// WrapStoreCacheToEmbedder reuses vectors persisted in the store for text
// the model has already seen. Keyed by model, task type, and content hash,
// so byte-identical text is never embedded twice across restarts.
func WrapStoreCacheToEmbedder(e ai.IEmbedder, store storage.Store) ai.IEmbedder {
	if e == nil || store == nil {
		return e
	}
	return &storeEmbedder{next: e, store: store}
}

type storeEmbedder struct {
	next  ai.IEmbedder
	store storage.Store
}

func (d *storeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	contentHash, modelName := buildCacheKey(d.next.ModelName(), text)
	values, ok, err := d.store.CachedEmbedding(ctx, modelName, taskType, contentHash)
	if err != nil {
		return nil, err
	}
	if ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit (store)", zap.String("task_type", taskType))
		return values, nil
	}
	res, err := d.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	d.save(ctx, modelName, taskType, contentHash, res)
	return res, nil
}

func (d *storeEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		contentHash, modelName := buildCacheKey(d.next.ModelName(), text)
		values, ok, err := d.store.CachedEmbedding(ctx, modelName, taskType, contentHash)
		if err != nil {
			return nil, err
		}
		if ok {
			out[i] = values
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return out, nil
	}
	vectors, err := d.next.EmbedBatch(ctx, missTexts, taskType)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vectors[j]
		contentHash, modelName := buildCacheKey(d.next.ModelName(), texts[i])
		d.save(ctx, modelName, taskType, contentHash, vectors[j])
	}
	return out, nil
}

func (d *storeEmbedder) ModelName() string {
	return d.next.ModelName()
}

func (d *storeEmbedder) save(ctx context.Context, modelName, taskType, contentHash string, values []float32) {
	err := d.store.SaveCachedEmbedding(ctx, &model.EmbeddingCache{
		ModelName:   modelName,
		TaskType:    taskType,
		ContentHash: contentHash,
		Embedding:   values,
		Ctime:       time.Now().Unix(),
	})
	if err != nil {
		logutil.GetLogger(ctx).Warn("failed to cache embedding", zap.Error(err))
	}
}

func buildCacheKey(modelName, text string) (contentHash string, name string) {
	name = strings.TrimSpace(modelName)
	if name == "" {
		name = "unknown"
	}
	return chunker.ContentHash(text), name
}
