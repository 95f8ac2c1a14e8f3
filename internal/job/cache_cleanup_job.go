package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/forgelabs/scriptforge/internal/storage"
)

// CacheCleanupJob drops embedding cache rows older than the retention
// window. Vectors still referenced by the index are unaffected, the cache
// only exists to skip re-embedding.
type CacheCleanupJob struct {
	store      storage.Store
	maxAgeDays int
}

func NewCacheCleanupJob(store storage.Store, maxAgeDays int) *CacheCleanupJob {
	return &CacheCleanupJob{store: store, maxAgeDays: maxAgeDays}
}

func (j *CacheCleanupJob) Name() string {
	return "embedding_cache_cleanup"
}

func (j *CacheCleanupJob) Run(ctx context.Context) error {
	if j.store == nil || j.maxAgeDays <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-time.Duration(j.maxAgeDays) * 24 * time.Hour).Unix()
	removed, err := j.store.PurgeCachedEmbeddings(ctx, cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("embedding cache cleaned",
			zap.Int64("removed", removed),
			zap.Int("max_age_days", j.maxAgeDays),
		)
	}
	return nil
}
