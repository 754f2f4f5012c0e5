package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/cvagent/internal/model"
)

func human(text string) model.Message {
	return model.Message{Role: model.RoleHuman, Content: text}
}

func TestStore_AppendPreservesOrderPerThread(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	s.Append(ctx, "1", human("a"), human("b"))
	s.Append(ctx, "2", human("x"))
	s.Append(ctx, "1", human("c"))

	got := s.Load(ctx, "1")
	require.Equal(t, []string{"a", "b", "c"}, []string{got[0].Content, got[1].Content, got[2].Content})
	require.Len(t, s.Load(ctx, "2"), 1)
	require.Empty(t, s.Load(ctx, "unknown"))
	require.Equal(t, 2, s.Threads())
}

func TestStore_LoadReturnsCopy(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	s.Append(ctx, "1", human("a"))
	got := s.Load(ctx, "1")
	got[0].Content = "mutated"
	require.Equal(t, "a", s.Load(ctx, "1")[0].Content)
}

func TestStore_LockSerialisesTurns(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.Lock("1")
			defer unlock()
			n := len(s.Load(ctx, "1"))
			s.Append(ctx, "1", human(fmt.Sprintf("q%d", n)), model.Message{Role: model.RoleAI, Content: fmt.Sprintf("a%d", n)})
		}()
	}
	wg.Wait()
	msgs := s.Load(ctx, "1")
	require.Len(t, msgs, 40)
	for i := 0; i < len(msgs); i += 2 {
		require.Equal(t, fmt.Sprintf("q%d", i), msgs[i].Content)
		require.Equal(t, fmt.Sprintf("a%d", i), msgs[i+1].Content)
	}
}

func TestStore_EvictIdleSkipsBusyAndRecentThreads(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore()
	s.now = func() time.Time { return now }
	ctx := context.Background()
	s.Append(ctx, "old", human("a"))
	s.Append(ctx, "busy", human("b"))
	unlock := s.Lock("busy")

	now = now.Add(time.Hour)
	s.Append(ctx, "fresh", human("c"))

	removed := s.EvictIdle(now.Add(-30 * time.Minute))
	require.Equal(t, 1, removed)
	require.Empty(t, s.Load(ctx, "old"))
	require.Len(t, s.Load(ctx, "busy"), 1)
	require.Len(t, s.Load(ctx, "fresh"), 1)

	unlock()
	require.Equal(t, 0, s.EvictIdle(now.Add(-30*time.Minute)))
	require.Equal(t, 2, s.Threads())
}
