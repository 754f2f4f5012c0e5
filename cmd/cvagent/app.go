package main

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/cvagent/internal/agent"
	"github.com/xxxsen/cvagent/internal/ai"
	"github.com/xxxsen/cvagent/internal/config"
	"github.com/xxxsen/cvagent/internal/docsource"
	"github.com/xxxsen/cvagent/internal/embedcache"
	"github.com/xxxsen/cvagent/internal/index"
	"github.com/xxxsen/cvagent/internal/memory"
	appErr "github.com/xxxsen/cvagent/internal/pkg/errors"
	"github.com/xxxsen/cvagent/internal/pkg/jwt"
	"github.com/xxxsen/cvagent/internal/service"
	"github.com/xxxsen/cvagent/internal/tool"
)

type app struct {
	cfg     *config.Config
	memory  *memory.Store
	service *service.ChatService
}

func buildApp(cfg *config.Config) (*app, error) {
	source, err := newDocumentSource(cfg.Document)
	if err != nil {
		return nil, fmt.Errorf("init document source: %w", err)
	}
	chunker, err := ai.NewChunker(cfg.Chunk.Size, cfg.Chunk.Overlap)
	if err != nil {
		return nil, err
	}
	manager, err := ai.NewManager(ai.ManagerConfig{
		Providers:         cfg.AI.Providers,
		Chat:              toModelRefs(cfg.AI.Chat),
		Embed:             toModelRefs(cfg.AI.Embed),
		RequestsPerSecond: cfg.AI.RequestsPerSecond,
		Timeout:           time.Duration(cfg.AI.Timeout) * time.Second,
		QueryRetries:      cfg.AI.QueryRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("init ai manager: %w", err)
	}
	queryEmbedder := embedcache.WrapLruCacheToEmbedder(
		manager.QueryEmbedder(),
		cfg.AI.EmbedCache.Size,
		time.Duration(cfg.AI.EmbedCache.TTLMinutes)*time.Minute,
	)
	idx := index.New(manager.Embedder(), index.WithQueryEmbedder(queryEmbedder))
	tools := tool.NewRegistry(tool.NewRetriever(idx,
		tool.WithTopK(cfg.Retrieval.TopK),
		tool.WithMinScore(cfg.Retrieval.MinScore),
	))
	store := memory.NewStore()

	prompt := cfg.Agent.SystemPrompt
	if prompt == "" {
		prompt = agent.DefaultSystemPrompt(cfg.Agent.Subject)
	}
	ag := agent.New(manager, tools, store,
		agent.WithSystemPrompt(prompt),
		agent.WithMaxToolRounds(cfg.Agent.MaxToolRounds),
		agent.WithCallTimeout(time.Duration(cfg.AI.Timeout)*time.Second),
		agent.WithFallbackAnswers(cfg.Agent.UnableAnswer, cfg.Agent.InsufficientAnswer),
	)
	logutil.GetLogger(context.Background()).Info("ai models ready",
		zap.String("chat", manager.ModelName()),
		zap.String("embed", manager.EmbeddingModelName()),
	)
	return &app{
		cfg:    cfg,
		memory: store,
		service: service.NewChatService(service.ChatServiceDeps{
			Source:       source,
			DocumentPath: cfg.Document.Path,
			Chunker:      chunker,
			Index:        idx,
			Agent:        ag,
			Memory:       store,
		}),
	}, nil
}

func mintToken(cfg *config.Config, subject, name string, ttl time.Duration) (string, error) {
	if cfg.Server.JWTSecret == "" {
		return "", fmt.Errorf("server.jwt_secret is empty, api auth is off: %w", appErr.ErrInvalidConfig)
	}
	return jwt.GenerateToken(subject, name, []byte(cfg.Server.JWTSecret), ttl)
}

func newDocumentSource(cfg config.DocumentConfig) (docsource.Source, error) {
	switch cfg.Source {
	case "s3":
		return docsource.New("s3", cfg.S3)
	default:
		return docsource.New(cfg.Source, map[string]interface{}{"dir": cfg.Dir})
	}
}

func toModelRefs(items []config.ModelConfig) []ai.ModelRef {
	out := make([]ai.ModelRef, 0, len(items))
	for _, item := range items {
		out = append(out, ai.ModelRef{Provider: item.Provider, Model: item.Model})
	}
	return out
}
