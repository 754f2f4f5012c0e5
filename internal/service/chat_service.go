package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/cvagent/internal/agent"
	"github.com/xxxsen/cvagent/internal/ai"
	"github.com/xxxsen/cvagent/internal/docsource"
	"github.com/xxxsen/cvagent/internal/index"
	"github.com/xxxsen/cvagent/internal/memory"
	"github.com/xxxsen/cvagent/internal/model"
	appErr "github.com/xxxsen/cvagent/internal/pkg/errors"
)

type ChatServiceDeps struct {
	Source       docsource.Source
	DocumentPath string
	Chunker      *ai.Chunker
	Index        index.Searcher
	Agent        *agent.Agent
	Memory       memory.Checkpointer
}

// ChatService loads the document once, indexes it and answers questions on threads.
type ChatService struct {
	deps ChatServiceDeps

	mu     sync.RWMutex
	doc    *model.Document
	chunks []model.Chunk
}

func NewChatService(deps ChatServiceDeps) *ChatService {
	return &ChatService{deps: deps}
}

// Bootstrap must succeed before Ask; its errors are fatal at startup.
func (s *ChatService) Bootstrap(ctx context.Context) error {
	logger := logutil.GetLogger(ctx).With(zap.String("document", s.deps.DocumentPath))
	start := time.Now()
	chunks, doc, err := s.Plan(ctx)
	if err != nil {
		return err
	}
	if err := s.deps.Index.Build(ctx, chunks); err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	s.mu.Lock()
	s.doc = doc
	s.chunks = chunks
	s.mu.Unlock()
	logger.Info("chat service ready",
		zap.Int("chars", doc.Len()),
		zap.Int("chunks", len(chunks)),
		zap.Duration("cost", time.Since(start)),
	)
	return nil
}

// Plan loads and splits the document without touching the index.
func (s *ChatService) Plan(ctx context.Context) ([]model.Chunk, *model.Document, error) {
	doc, err := s.deps.Source.Load(ctx, s.deps.DocumentPath)
	if err != nil {
		return nil, nil, err
	}
	chunks := s.deps.Chunker.Split(*doc)
	if len(chunks) == 0 {
		return nil, nil, fmt.Errorf("document %s produced no chunks: %w", doc.Source, appErr.ErrEmptyIndex)
	}
	return chunks, doc, nil
}

// Ask runs one agent turn. For per-turn failures the returned turn still holds
// the fallback answer to show the user.
func (s *ChatService) Ask(ctx context.Context, threadID, query string) (*agent.Turn, error) {
	if !s.deps.Index.Ready() {
		return nil, appErr.ErrEmptyIndex
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required: %w", appErr.ErrInvalid)
	}
	return s.deps.Agent.Run(ctx, threadID, query)
}

func (s *ChatService) History(ctx context.Context, threadID string) []model.Message {
	return s.deps.Memory.Load(ctx, threadID)
}

func (s *ChatService) Ready() bool {
	return s.deps.Index.Ready()
}

func (s *ChatService) Chunks() []model.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}
