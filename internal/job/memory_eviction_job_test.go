package job

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/cvagent/internal/memory"
	"github.com/xxxsen/cvagent/internal/model"
)

type recordingEvicter struct {
	cutoffs []time.Time
}

func (r *recordingEvicter) EvictIdle(cutoff time.Time) int {
	r.cutoffs = append(r.cutoffs, cutoff)
	return 0
}

func TestMemoryEvictionJob_Cutoff(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := &recordingEvicter{}
	j := NewMemoryEvictionJob(rec, 30*time.Minute)
	j.now = func() time.Time { return now }

	require.Equal(t, "memory_eviction", j.Name())
	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, []time.Time{now.Add(-30 * time.Minute)}, rec.cutoffs)
}

func TestMemoryEvictionJob_Disabled(t *testing.T) {
	rec := &recordingEvicter{}
	require.NoError(t, NewMemoryEvictionJob(rec, 0).Run(context.Background()))
	require.Empty(t, rec.cutoffs)
	require.NoError(t, NewMemoryEvictionJob(nil, time.Minute).Run(context.Background()))
}

func TestMemoryEvictionJob_WithStore(t *testing.T) {
	store := memory.NewStore()
	store.Append(context.Background(), "old", model.Message{Role: model.RoleHuman, Content: "hi"})

	j := NewMemoryEvictionJob(store, time.Minute)
	j.now = func() time.Time { return time.Now().Add(time.Hour) }
	require.NoError(t, j.Run(context.Background()))
	require.Zero(t, store.Threads())
}
