package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/forgelabs/scriptforge/internal/model"
	"github.com/forgelabs/scriptforge/internal/research"
)

// RefreshJob re-runs research for the tracked topics so edited articles are
// re-ingested. Unchanged sources short-circuit on their fingerprint, so a
// quiet run only costs the fetches.
type RefreshJob struct {
	research *research.Service
	topics   []string
}

func NewRefreshJob(svc *research.Service, topics []string) *RefreshJob {
	return &RefreshJob{research: svc, topics: topics}
}

func (j *RefreshJob) Name() string {
	return "source_refresh"
}

func (j *RefreshJob) Run(ctx context.Context) error {
	if j.research == nil || len(j.topics) == 0 {
		return nil
	}
	logger := logutil.GetLogger(ctx)
	for _, topic := range j.topics {
		report, err := j.research.Research(ctx, topic, nil)
		if err != nil {
			logger.Warn("refresh failed for topic", zap.String("topic", topic), zap.Error(err))
			continue
		}
		refreshed := 0
		for _, src := range report.Sources {
			if src.Status == model.IngestStatusReingested {
				refreshed++
			}
		}
		logger.Info("topic refreshed",
			zap.String("topic", topic),
			zap.Int("sources", len(report.Sources)),
			zap.Int("reingested", refreshed),
		)
	}
	return nil
}
