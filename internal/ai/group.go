package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/cvagent/internal/model"
)

type ChatModelEntry struct {
	Name  string
	Model IChatModel
}

type EmbedderEntry struct {
	Name     string
	Embedder IEmbedder
}

type groupChatModel struct {
	items []ChatModelEntry
}

func NewGroupChatModel(items []ChatModelEntry) IChatModel {
	if len(items) == 0 {
		return nil
	}
	if len(items) == 1 {
		return items[0].Model
	}
	return &groupChatModel{items: items}
}

func (g *groupChatModel) Chat(ctx context.Context, req *ChatRequest) (*model.Message, error) {
	var lastErr error
	for i, item := range g.items {
		if item.Model == nil {
			continue
		}
		res, err := item.Model.Chat(ctx, req)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		logutil.GetLogger(ctx).Warn("chat model failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
	}
	if lastErr == nil {
		return nil, fmt.Errorf("chat model not configured")
	}
	return nil, lastErr
}

func (g *groupChatModel) ModelName() string {
	return joinEntryNames(len(g.items), func(i int) string { return g.items[i].Name })
}

type groupEmbedder struct {
	items []EmbedderEntry
}

// NewGroupEmbedder falls back across entries in order. Entries should share one
// embedding space; the index rejects vectors whose dimension drifts.
func NewGroupEmbedder(items []EmbedderEntry) IEmbedder {
	if len(items) == 0 {
		return nil
	}
	if len(items) == 1 {
		return items[0].Embedder
	}
	return &groupEmbedder{items: items}
}

func (g *groupEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	var lastErr error
	for i, item := range g.items {
		if item.Embedder == nil {
			continue
		}
		res, err := item.Embedder.Embed(ctx, text, taskType)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		logutil.GetLogger(ctx).Warn("embedder failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
	}
	if lastErr == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	return nil, lastErr
}

func (g *groupEmbedder) ModelName() string {
	return joinEntryNames(len(g.items), func(i int) string { return g.items[i].Name })
}

func joinEntryNames(n int, name func(int) string) string {
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if v := name(i); v != "" {
			names = append(names, v)
		}
	}
	return strings.Join(names, "|")
}
