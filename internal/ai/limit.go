package ai

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/xxxsen/cvagent/internal/model"
)

// NewLimiter returns nil when rps is not positive, which disables throttling.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// WrapRateLimitChatModel makes every chat call wait for a token from l.
// Sharing l with WrapRateLimitEmbedder caps the combined upstream rate.
func WrapRateLimitChatModel(m IChatModel, l *rate.Limiter) IChatModel {
	if m == nil || l == nil {
		return m
	}
	return &limitChatModel{next: m, limiter: l}
}

type limitChatModel struct {
	next    IChatModel
	limiter *rate.Limiter
}

func (l *limitChatModel) Chat(ctx context.Context, req *ChatRequest) (*model.Message, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.next.Chat(ctx, req)
}

func (l *limitChatModel) ModelName() string {
	return l.next.ModelName()
}

func WrapRateLimitEmbedder(e IEmbedder, l *rate.Limiter) IEmbedder {
	if e == nil || l == nil {
		return e
	}
	return &limitEmbedder{next: e, limiter: l}
}

type limitEmbedder struct {
	next    IEmbedder
	limiter *rate.Limiter
}

func (l *limitEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.next.Embed(ctx, text, taskType)
}

func (l *limitEmbedder) ModelName() string {
	return l.next.ModelName()
}
