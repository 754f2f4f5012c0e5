package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countJob struct {
	name  string
	calls atomic.Int32
	block chan struct{}
}

func (j *countJob) Name() string {
	return j.name
}

func (j *countJob) Run(ctx context.Context) error {
	j.calls.Add(1)
	if j.block != nil {
		<-j.block
	}
	return nil
}

func TestCronScheduler_AddJob(t *testing.T) {
	s := NewCronScheduler()
	require.NoError(t, s.AddJob(&countJob{name: "sweep"}, "*/5 * * * *"))
	require.Error(t, s.AddJob(&countJob{name: "sweep"}, "@hourly"), "duplicate name")
	require.Error(t, s.AddJob(&countJob{name: "bad"}, "not a spec"))
	require.Error(t, s.AddJob(&countJob{name: "seconds"}, "*/5 * * * * *"), "six fields are not accepted")
	require.NoError(t, s.AddJob(&countJob{name: "hourly"}, "@hourly"))

	require.True(t, s.Next("sweep").IsZero())
	s.Start(context.Background())
	defer s.Stop()
	require.False(t, s.Next("sweep").IsZero())
	require.True(t, s.Next("missing").IsZero())
}

func TestCronScheduler_RunnerSkipsOverlap(t *testing.T) {
	s := NewCronScheduler()
	job := &countJob{name: "slow", block: make(chan struct{})}
	run := s.runner(job, "@every 1m")

	done := make(chan struct{})
	go func() {
		run()
		close(done)
	}()
	require.Eventually(t, func() bool { return job.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	run()
	require.EqualValues(t, 1, job.calls.Load())
	close(job.block)
	<-done
	run()
	require.EqualValues(t, 2, job.calls.Load())
}

func TestCronScheduler_StopWithoutStart(t *testing.T) {
	s := NewCronScheduler()
	s.Stop()
	s.Start(context.Background())
	s.Start(context.Background())
	s.Stop()
	s.Stop()
}
