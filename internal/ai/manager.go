package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/cvagent/internal/model"
)

type ModelRef struct {
	Provider string
	Model    string
}

type ManagerConfig struct {
	// Providers maps a provider name to its raw args, decoded by the provider factory.
	Providers         map[string]interface{}
	Chat              []ModelRef
	Embed             []ModelRef
	RequestsPerSecond float64
	QueryRetries      int
	RetryInterval     time.Duration

	// Timeout bounds each upstream call: one chat request or one embedding attempt.
	Timeout time.Duration
}

// Manager owns the chat model and embedders built from config. The document
// embedder is used once at build time; the query embedder adds retries.
type Manager struct {
	chat          IChatModel
	embedder      IEmbedder
	queryEmbedder IEmbedder
}

func NewManager(cfg ManagerConfig) (*Manager, error) {
	if len(cfg.Chat) == 0 {
		return nil, fmt.Errorf("at least one chat model is required")
	}
	if len(cfg.Embed) == 0 {
		return nil, fmt.Errorf("at least one embed model is required")
	}
	limiter := NewLimiter(cfg.RequestsPerSecond)

	chatItems := make([]ChatModelEntry, 0, len(cfg.Chat))
	for _, ref := range cfg.Chat {
		p, err := NewChatProvider(ref.Provider, cfg.Providers[normalizeName(ref.Provider)])
		if err != nil {
			return nil, fmt.Errorf("init chat provider %s: %w", ref.Provider, err)
		}
		chatItems = append(chatItems, ChatModelEntry{
			Name:  refName(ref),
			Model: WrapTimeoutChatModel(WrapRateLimitChatModel(NewChatModel(p, ref.Model), limiter), cfg.Timeout),
		})
	}
	embedItems := make([]EmbedderEntry, 0, len(cfg.Embed))
	for _, ref := range cfg.Embed {
		p, err := NewEmbedProvider(ref.Provider, cfg.Providers[normalizeName(ref.Provider)])
		if err != nil {
			return nil, fmt.Errorf("init embed provider %s: %w", ref.Provider, err)
		}
		embedItems = append(embedItems, EmbedderEntry{
			Name:     refName(ref),
			Embedder: WrapTimeoutEmbedder(WrapRateLimitEmbedder(NewEmbedder(p, ref.Model), limiter), cfg.Timeout),
		})
	}
	embedder := NewGroupEmbedder(embedItems)
	return &Manager{
		chat:          NewGroupChatModel(chatItems),
		embedder:      embedder,
		queryEmbedder: WrapRetryEmbedder(embedder, cfg.QueryRetries, cfg.RetryInterval),
	}, nil
}

func (m *Manager) Chat(ctx context.Context, req *ChatRequest) (*model.Message, error) {
	if m.chat == nil {
		return nil, ErrUnavailable
	}
	msg, err := m.chat.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	if msg == nil || (strings.TrimSpace(msg.Content) == "" && !msg.HasToolCalls()) {
		return nil, fmt.Errorf("empty ai response")
	}
	msg.Content = strings.TrimSpace(msg.Content)
	return msg, nil
}

func (m *Manager) ModelName() string {
	if m.chat == nil {
		return ""
	}
	return m.chat.ModelName()
}

func (m *Manager) Embedder() IEmbedder {
	return m.embedder
}

func (m *Manager) QueryEmbedder() IEmbedder {
	return m.queryEmbedder
}

func (m *Manager) EmbeddingModelName() string {
	if m.embedder == nil {
		return ""
	}
	return m.embedder.ModelName()
}

func refName(ref ModelRef) string {
	return normalizeName(ref.Provider) + "/" + strings.TrimSpace(ref.Model)
}
