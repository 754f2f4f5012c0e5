package ai

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const defaultRetryInterval = 200 * time.Millisecond

// WrapRetryEmbedder retries failed embeddings with exponential backoff.
// ErrUnavailable and cancellation are not retried; an attempt that hit its own
// deadline is, as long as ctx itself is still live.
func WrapRetryEmbedder(e IEmbedder, maxRetries int, initial time.Duration) IEmbedder {
	if e == nil || maxRetries <= 0 {
		return e
	}
	if initial <= 0 {
		initial = defaultRetryInterval
	}
	return &retryEmbedder{next: e, maxRetries: uint64(maxRetries), initial: initial}
}

type retryEmbedder struct {
	next       IEmbedder
	maxRetries uint64
	initial    time.Duration
}

func (r *retryEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.initial
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, r.maxRetries), ctx)

	attempt := 0
	op := func() ([]float32, error) {
		attempt++
		res, err := r.next.Embed(ctx, text, taskType)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil || errors.Is(err, ErrUnavailable) || errors.Is(err, context.Canceled) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	notify := func(err error, wait time.Duration) {
		logutil.GetLogger(ctx).Warn("embed failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.String("task_type", taskType),
			zap.Error(err),
		)
	}
	return backoff.RetryNotifyWithData(op, policy, notify)
}

func (r *retryEmbedder) ModelName() string {
	return r.next.ModelName()
}
