package docsource

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/xxxsen/cvagent/internal/model"
	appErr "github.com/xxxsen/cvagent/internal/pkg/errors"
)

// Source loads the single document the index is built from.
type Source interface {
	Load(ctx context.Context, location string) (*model.Document, error)
}

type Factory func(args interface{}) (Source, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

// New builds the source registered under name; an empty name means local.
func New(name string, args interface{}) (Source, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = "local"
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported document source: %s: %w", name, appErr.ErrInvalidConfig)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode source config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode source config: %w", err)
	}
	return nil
}

// toDocument turns raw bytes into a Document, picking the text extraction by extension.
func toDocument(source, name string, data []byte) (*model.Document, error) {
	ext := strings.ToLower(path.Ext(name))
	if ext == ".pdf" {
		return nil, fmt.Errorf("%s: pdf is not supported, provide extracted text: %w", source, appErr.ErrDocumentLoad)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s: not valid utf-8: %w", source, appErr.ErrDocumentLoad)
	}
	text := string(data)
	if ext == ".md" || ext == ".markdown" {
		text = MarkdownToText(data)
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s: document is empty: %w", source, appErr.ErrDocumentLoad)
	}
	return &model.Document{Source: source, Text: text}, nil
}
