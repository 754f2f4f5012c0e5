package ai

import (
	"context"
	"strings"

	"github.com/xxxsen/cvagent/internal/model"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

type openrouterConfig struct {
	APIKey      string `json:"api_key"`
	BaseURL     string `json:"base_url"`
	HTTPReferer string `json:"http_referer"`
	XTitle      string `json:"x_title"`
}

// openrouterProvider speaks the OpenAI chat completions dialect with attribution headers.
type openrouterProvider struct {
	inner *openAIProvider
}

func (p *openrouterProvider) Name() string {
	return "openrouter"
}

func (p *openrouterProvider) Chat(ctx context.Context, model string, req *ChatRequest) (*model.Message, error) {
	return p.inner.Chat(ctx, model, req)
}

func createOpenRouterFactory(args interface{}) (IChatProvider, error) {
	cfg := &openrouterConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	headers := map[string]string{}
	if v := strings.TrimSpace(cfg.HTTPReferer); v != "" {
		headers["HTTP-Referer"] = v
	}
	if v := strings.TrimSpace(cfg.XTitle); v != "" {
		headers["X-Title"] = v
	}
	return &openrouterProvider{
		inner: &openAIProvider{
			apiKey:  strings.TrimSpace(cfg.APIKey),
			baseURL: baseURL,
			headers: headers,
		},
	}, nil
}

func init() {
	Register("openrouter", createOpenRouterFactory)
}
