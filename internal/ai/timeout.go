package ai

import (
	"context"
	"time"

	"github.com/xxxsen/cvagent/internal/model"
)

// WrapTimeoutEmbedder bounds every Embed call by d. Placed under the retry
// wrapper it bounds each attempt rather than the whole retry sequence.
func WrapTimeoutEmbedder(e IEmbedder, d time.Duration) IEmbedder {
	if e == nil || d <= 0 {
		return e
	}
	return &timeoutEmbedder{next: e, timeout: d}
}

type timeoutEmbedder struct {
	next    IEmbedder
	timeout time.Duration
}

func (t *timeoutEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Embed(ctx, text, taskType)
}

func (t *timeoutEmbedder) ModelName() string {
	return t.next.ModelName()
}

func WrapTimeoutChatModel(m IChatModel, d time.Duration) IChatModel {
	if m == nil || d <= 0 {
		return m
	}
	return &timeoutChatModel{next: m, timeout: d}
}

type timeoutChatModel struct {
	next    IChatModel
	timeout time.Duration
}

func (t *timeoutChatModel) Chat(ctx context.Context, req *ChatRequest) (*model.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Chat(ctx, req)
}

func (t *timeoutChatModel) ModelName() string {
	return t.next.ModelName()
}
