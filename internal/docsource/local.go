package docsource

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/cvagent/internal/model"
	appErr "github.com/xxxsen/cvagent/internal/pkg/errors"
)

type localConfig struct {
	Dir string `json:"dir"`
}

type localSource struct {
	dir string
}

func init() {
	Register("local", createLocalSource)
}

func createLocalSource(args interface{}) (Source, error) {
	config := &localConfig{}
	if err := decodeConfig(args, config); err != nil {
		return nil, err
	}
	return &localSource{dir: strings.TrimSpace(config.Dir)}, nil
}

func (s *localSource) Load(ctx context.Context, location string) (*model.Document, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("document path is required: %w", appErr.ErrDocumentLoad)
	}
	p := location
	if s.dir != "" && !strings.HasPrefix(p, "/") {
		p = strings.TrimSuffix(s.dir, "/") + "/" + p
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", p, appErr.ErrDocumentLoad, err)
	}
	doc, err := toDocument(location, p, data)
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("document loaded", zap.String("path", p), zap.Int("chars", doc.Len()))
	return doc, nil
}
