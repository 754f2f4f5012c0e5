package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/cvagent/internal/model"
	appErr "github.com/xxxsen/cvagent/internal/pkg/errors"
)

const (
	RetrieveToolName = "retrieve"
	DefaultTopK      = 2

	NoRelevantContent = "No relevant information was found in the source for this query."
)

type Querier interface {
	Query(ctx context.Context, text string, k int) (model.RetrievalResult, error)
}

type retrieveArgs struct {
	Query *string `json:"query"`
}

type Retriever struct {
	index    Querier
	k        int
	minScore float32
}

type RetrieverOption func(*Retriever)

func WithTopK(k int) RetrieverOption {
	return func(r *Retriever) {
		if k > 0 {
			r.k = k
		}
	}
}

// WithMinScore drops hits scoring below s. Zero keeps everything.
func WithMinScore(s float32) RetrieverOption {
	return func(r *Retriever) {
		r.minScore = s
	}
}

func NewRetriever(index Querier, opts ...RetrieverOption) *Retriever {
	r := &Retriever{index: index, k: DefaultTopK}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retriever) Spec() model.ToolSpec {
	return model.ToolSpec{
		Name:        RetrieveToolName,
		Description: "Retrieve information related to a query.",
		Params: []model.ToolParam{
			{Name: "query", Type: "string", Description: "What to look up in the source document.", Required: true},
		},
	}
}

func (r *Retriever) Call(ctx context.Context, args json.RawMessage) (*Result, error) {
	query, err := parseRetrieveArgs(args)
	if err != nil {
		return nil, err
	}
	hits, err := r.index.Query(ctx, query, r.k)
	if err != nil {
		return nil, err
	}
	kept := make(model.RetrievalResult, 0, len(hits))
	for _, h := range hits {
		if r.minScore > 0 && h.Score < r.minScore {
			continue
		}
		kept = append(kept, h)
	}
	logutil.GetLogger(ctx).Debug("retrieve done",
		zap.String("query", query),
		zap.Int("hits", len(hits)),
		zap.Int("kept", len(kept)),
	)
	if len(kept) == 0 {
		return &Result{Content: NoRelevantContent, Artifact: kept}, nil
	}
	return &Result{Content: FormatResult(kept), Artifact: kept}, nil
}

// FormatResult renders one "Source/Content" block per hit, newline separated.
func FormatResult(res model.RetrievalResult) string {
	blocks := make([]string, 0, len(res))
	for _, item := range res {
		blocks = append(blocks, "Source: "+item.Chunk.Meta.Source+"\nContent: "+item.Chunk.Content)
	}
	return strings.Join(blocks, "\n")
}

func parseRetrieveArgs(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", fmt.Errorf("retrieve args must be a json object: %w", appErr.ErrSchemaValidation)
	}
	var args retrieveArgs
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&args); err != nil {
		return "", fmt.Errorf("decode retrieve args: %w: %w", appErr.ErrSchemaValidation, err)
	}
	if dec.More() {
		return "", fmt.Errorf("trailing data after retrieve args: %w", appErr.ErrSchemaValidation)
	}
	if args.Query == nil {
		return "", fmt.Errorf("query is required: %w", appErr.ErrSchemaValidation)
	}
	query := strings.TrimSpace(*args.Query)
	if query == "" {
		return "", fmt.Errorf("query must not be blank: %w", appErr.ErrSchemaValidation)
	}
	return query, nil
}
