package index

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/cvagent/internal/ai"
	"github.com/xxxsen/cvagent/internal/model"
	appErr "github.com/xxxsen/cvagent/internal/pkg/errors"
)

const defaultBuildConcurrency = 4

// Searcher answers k-nearest-neighbour queries over chunks embedded once at startup.
type Searcher interface {
	Build(ctx context.Context, chunks []model.Chunk) error
	Query(ctx context.Context, text string, k int) (model.RetrievalResult, error)
	Ready() bool
	Len() int
}

type state int

const (
	stateEmpty state = iota
	stateBuilding
	stateReady
)

type entry struct {
	chunk model.Chunk
	vec   []float32
	norm  float64
}

type VectorIndex struct {
	docEmbedder   ai.IEmbedder
	queryEmbedder ai.IEmbedder
	concurrency   int

	mu      sync.RWMutex
	state   state
	dim     int
	entries []entry
}

type Option func(*VectorIndex)

// WithQueryEmbedder sets the embedder used at query time, usually the document
// embedder wrapped with retry and cache. It must produce the same vector space.
func WithQueryEmbedder(e ai.IEmbedder) Option {
	return func(v *VectorIndex) {
		if e != nil {
			v.queryEmbedder = e
		}
	}
}

func WithBuildConcurrency(n int) Option {
	return func(v *VectorIndex) {
		if n > 0 {
			v.concurrency = n
		}
	}
}

func New(embedder ai.IEmbedder, opts ...Option) *VectorIndex {
	v := &VectorIndex{
		docEmbedder:   embedder,
		queryEmbedder: embedder,
		concurrency:   defaultBuildConcurrency,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *VectorIndex) Build(ctx context.Context, chunks []model.Chunk) error {
	v.mu.Lock()
	if v.state != stateEmpty {
		v.mu.Unlock()
		return appErr.ErrAlreadyBuilt
	}
	if len(chunks) == 0 {
		v.mu.Unlock()
		return fmt.Errorf("build with no chunks: %w", appErr.ErrEmptyIndex)
	}
	v.state = stateBuilding
	v.mu.Unlock()

	logger := logutil.GetLogger(ctx)
	start := time.Now()
	entries, dim, err := v.embedAll(ctx, chunks)
	if err != nil {
		v.mu.Lock()
		v.state = stateEmpty
		v.mu.Unlock()
		logger.Error("build index failed", zap.Int("chunks", len(chunks)), zap.Error(err))
		return err
	}

	v.mu.Lock()
	v.entries = entries
	v.dim = dim
	v.state = stateReady
	v.mu.Unlock()
	logger.Info("index built",
		zap.Int("chunks", len(entries)),
		zap.Int("dim", dim),
		zap.String("model", v.docEmbedder.ModelName()),
		zap.Duration("cost", time.Since(start)),
	)
	return nil
}

func (v *VectorIndex) embedAll(ctx context.Context, chunks []model.Chunk) ([]entry, int, error) {
	entries := make([]entry, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)
	for i := range chunks {
		g.Go(func() error {
			vec, err := v.docEmbedder.Embed(gctx, chunks[i].Content, ai.TaskTypeRetrievalDocument)
			if err != nil {
				return fmt.Errorf("embed chunk %d: %w: %w", i, appErr.ErrEmbeddingService, err)
			}
			if len(vec) == 0 {
				return fmt.Errorf("embed chunk %d: empty vector: %w", i, appErr.ErrEmbeddingService)
			}
			entries[i] = entry{chunk: chunks[i], vec: vec, norm: magnitude(vec)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	dim := len(entries[0].vec)
	for i, e := range entries {
		if len(e.vec) != dim {
			return nil, 0, fmt.Errorf("chunk %d has dim %d, want %d: %w", i, len(e.vec), dim, appErr.ErrEmbeddingService)
		}
	}
	return entries, dim, nil
}

// Query returns the min(k, Len()) entries most similar to text, best first.
// Equal scores keep chunk order.
func (v *VectorIndex) Query(ctx context.Context, text string, k int) (model.RetrievalResult, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be >= 1, got %d: %w", k, appErr.ErrInvalid)
	}
	v.mu.RLock()
	ready := v.state == stateReady
	entries := v.entries
	dim := v.dim
	v.mu.RUnlock()
	if !ready {
		return nil, appErr.ErrEmptyIndex
	}

	qvec, err := v.queryEmbedder.Embed(ctx, text, ai.TaskTypeRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w: %w", appErr.ErrEmbeddingService, err)
	}
	if len(qvec) != dim {
		return nil, fmt.Errorf("query dim %d, want %d: %w", len(qvec), dim, appErr.ErrEmbeddingService)
	}
	qnorm := magnitude(qvec)

	res := make(model.RetrievalResult, 0, len(entries))
	for _, e := range entries {
		res = append(res, model.ScoredChunk{
			Chunk: e.chunk,
			Score: cosine(qvec, qnorm, e.vec, e.norm),
		})
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Score > res[j].Score
	})
	if k < len(res) {
		res = res[:k]
	}
	logutil.GetLogger(ctx).Debug("index query",
		zap.Int("k", k),
		zap.Int("hits", len(res)),
	)
	return res, nil
}

func (v *VectorIndex) Ready() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state == stateReady
}

func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}
