package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// IdleEvicter drops conversation threads untouched since cutoff.
type IdleEvicter interface {
	EvictIdle(cutoff time.Time) int
}

type MemoryEvictionJob struct {
	store IdleEvicter
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryEvictionJob(store IdleEvicter, ttl time.Duration) *MemoryEvictionJob {
	return &MemoryEvictionJob{store: store, ttl: ttl, now: time.Now}
}

func (j *MemoryEvictionJob) Name() string {
	return "memory_eviction"
}

func (j *MemoryEvictionJob) Run(ctx context.Context) error {
	if j.store == nil || j.ttl <= 0 {
		return nil
	}
	if n := j.store.EvictIdle(j.now().Add(-j.ttl)); n > 0 {
		logutil.GetLogger(ctx).Info("idle threads evicted", zap.Int("count", n), zap.Duration("ttl", j.ttl))
	}
	return nil
}
