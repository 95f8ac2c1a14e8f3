package ai

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

type retryEmbedder struct {
	next  IEmbedder
	cfg   RetryConfig
	sleep func(ctx context.Context, d time.Duration) error
}

// WrapRetryToEmbedder retries transient provider failures with exponential
// backoff and jitter. Invalid input is surfaced immediately.
func WrapRetryToEmbedder(e IEmbedder, cfg RetryConfig) IEmbedder {
	if e == nil {
		return nil
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	return &retryEmbedder{next: e, cfg: cfg, sleep: sleepCtx}
}

func (r *retryEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	var result []float32
	err := r.withRetries(ctx, func() error {
		var err error
		result, err = r.next.Embed(ctx, text, taskType)
		return err
	})
	return result, err
}

func (r *retryEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	var result [][]float32
	err := r.withRetries(ctx, func() error {
		var err error
		result, err = r.next.EmbedBatch(ctx, texts, taskType)
		return err
	})
	return result, err
}

func (r *retryEmbedder) ModelName() string {
	return r.next.ModelName()
}

func (r *retryEmbedder) withRetries(ctx context.Context, call func() error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = call()
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) || attempt >= r.cfg.MaxRetries {
			return lastErr
		}
		delay := r.backoff(attempt + 1)
		logutil.GetLogger(ctx).Warn("embed call failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)
		if err := r.sleep(ctx, delay); err != nil {
			return lastErr
		}
	}
}

func (r *retryEmbedder) backoff(attempt int) time.Duration {
	delay := float64(r.cfg.BaseDelay) * math.Pow(2, float64(attempt-1))
	// jitter: +-25%
	delay += delay * 0.25 * (rand.Float64()*2 - 1)
	if delay > float64(r.cfg.MaxDelay) {
		delay = float64(r.cfg.MaxDelay)
	}
	return time.Duration(delay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
