package ai

import (
	"context"
	"time"
)

type timeoutEmbedder struct {
	next    IEmbedder
	timeout time.Duration
}

// WrapTimeoutToEmbedder bounds each provider call. Sitting under the retry
// decorator, the timeout applies per attempt, not to the whole retry loop.
func WrapTimeoutToEmbedder(e IEmbedder, timeout time.Duration) IEmbedder {
	if e == nil || timeout <= 0 {
		return e
	}
	return &timeoutEmbedder{next: e, timeout: timeout}
}

func (t *timeoutEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Embed(ctx, text, taskType)
}

func (t *timeoutEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.EmbedBatch(ctx, texts, taskType)
}

func (t *timeoutEmbedder) ModelName() string {
	return t.next.ModelName()
}
