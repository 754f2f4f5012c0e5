package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/cvagent/internal/pkg/errors"
)

const minimal = `{
	"document": {"path": "./sources/cv.txt"},
	"ai": {
		"providers": {"Bedrock": {"region": "${CVAGENT_TEST_REGION}"}},
		"chat": [{"provider": "bedrock", "model": "anthropic.claude-3-haiku"}],
		"embed": [{"provider": "bedrock", "model": "amazon.titan-embed-text-v2:0"}]
	}
}`

func TestLoad_AppliesDefaults(t *testing.T) {
	t.Setenv("CVAGENT_TEST_REGION", "us-east-1")
	p := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(p, []byte(minimal), 0o644))

	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, "local", cfg.Document.Source)
	require.Equal(t, 1000, cfg.Chunk.Size)
	require.Equal(t, 200, cfg.Chunk.Overlap)
	require.Equal(t, 2, cfg.Retrieval.TopK)
	require.Equal(t, 5, cfg.Agent.MaxToolRounds)
	require.Equal(t, "1", cfg.Agent.ThreadID)
	require.Equal(t, 60, cfg.AI.Timeout)
	require.Equal(t, 3, cfg.AI.QueryRetries)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "*/10 * * * *", cfg.Memory.SweepSpec)

	args, ok := cfg.AI.Providers["bedrock"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "us-east-1", args["region"])
}

func TestParse_EnvValuesAreEscaped(t *testing.T) {
	t.Setenv("CVAGENT_TEST_REGION", `eu"west\1`)
	cfg, err := Parse([]byte(minimal))
	require.NoError(t, err)
	args := cfg.AI.Providers["bedrock"].(map[string]interface{})
	require.Equal(t, `eu"west\1`, args["region"])
}

func TestParse_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "no document", raw: `{"ai":{"chat":[{"provider":"openai"}],"embed":[{"provider":"openai"}]}}`},
		{name: "overlap too large", raw: `{"document":{"path":"cv.txt"},"chunk":{"size":100,"overlap":100},"ai":{"chat":[{"provider":"openai"}],"embed":[{"provider":"openai"}]}}`},
		{name: "no chat model", raw: `{"document":{"path":"cv.txt"},"ai":{"embed":[{"provider":"openai"}]}}`},
		{name: "no embed model", raw: `{"document":{"path":"cv.txt"},"ai":{"chat":[{"provider":"openai"}]}}`},
		{name: "blank provider", raw: `{"document":{"path":"cv.txt"},"ai":{"chat":[{"provider":" "}],"embed":[{"provider":"openai"}]}}`},
		{name: "bad source", raw: `{"document":{"path":"cv.txt","source":"ftp"},"ai":{"chat":[{"provider":"openai"}],"embed":[{"provider":"openai"}]}}`},
		{name: "s3 without bucket", raw: `{"document":{"path":"cv.txt","source":"s3"},"ai":{"chat":[{"provider":"openai"}],"embed":[{"provider":"openai"}]}}`},
		{name: "negative top k", raw: `{"document":{"path":"cv.txt"},"retrieval":{"top_k":-1},"ai":{"chat":[{"provider":"openai"}],"embed":[{"provider":"openai"}]}}`},
		{name: "min score above one", raw: `{"document":{"path":"cv.txt"},"retrieval":{"min_score":1.5},"ai":{"chat":[{"provider":"openai"}],"embed":[{"provider":"openai"}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			require.ErrorIs(t, err, appErr.ErrInvalidConfig)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestParse_MalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"document":`))
	require.ErrorContains(t, err, "decode config")
}
