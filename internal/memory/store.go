package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xxxsen/cvagent/internal/model"
)

// Checkpointer keeps the ordered message history of each conversation thread.
type Checkpointer interface {
	Load(ctx context.Context, threadID string) []model.Message
	Append(ctx context.Context, threadID string, msgs ...model.Message)
}

type thread struct {
	turn     sync.Mutex
	busy     int
	messages []model.Message
	touched  time.Time
}

// Store is an in-process Checkpointer. Threads are isolated by id and created
// on first use; history lives as long as the process unless evicted.
type Store struct {
	mu      sync.Mutex
	threads map[string]*thread
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{
		threads: make(map[string]*thread),
		now:     time.Now,
	}
}

func (s *Store) get(threadID string) *thread {
	t, ok := s.threads[threadID]
	if !ok {
		t = &thread{touched: s.now()}
		s.threads[threadID] = t
	}
	return t
}

func (s *Store) Load(ctx context.Context, threadID string) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[threadID]
	if !ok {
		return []model.Message{}
	}
	out := make([]model.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (s *Store) Append(ctx context.Context, threadID string, msgs ...model.Message) {
	if len(msgs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.get(threadID)
	t.messages = append(t.messages, msgs...)
	t.touched = s.now()
}

// Lock serialises turns on one thread. Call the returned func to release.
func (s *Store) Lock(threadID string) func() {
	s.mu.Lock()
	t := s.get(threadID)
	t.busy++
	s.mu.Unlock()

	t.turn.Lock()
	return func() {
		t.turn.Unlock()
		s.mu.Lock()
		t.busy--
		t.touched = s.now()
		s.mu.Unlock()
	}
}

// EvictIdle drops threads untouched since cutoff that no turn is using.
func (s *Store) EvictIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, t := range s.threads {
		if t.busy > 0 || !t.touched.Before(cutoff) {
			continue
		}
		delete(s.threads, id)
		removed++
	}
	return removed
}

func (s *Store) Threads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.threads)
}
