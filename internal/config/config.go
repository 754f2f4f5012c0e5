package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/xxxsen/common/logger"

	appErr "github.com/xxxsen/cvagent/internal/pkg/errors"
)

type Config struct {
	LogConfig logger.LogConfig `json:"log_config"`
	Document  DocumentConfig   `json:"document"`
	Chunk     ChunkConfig      `json:"chunk"`
	AI        AIConfig         `json:"ai"`
	Retrieval RetrievalConfig  `json:"retrieval"`
	Agent     AgentConfig      `json:"agent"`
	Memory    MemoryConfig     `json:"memory"`
	Server    ServerConfig     `json:"server"`
}

type DocumentConfig struct {
	Path   string   `json:"path"`
	Source string   `json:"source"`
	Dir    string   `json:"dir"`
	S3     S3Config `json:"s3"`
}

type S3Config struct {
	Endpoint  string `json:"endpoint"`
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Prefix    string `json:"prefix"`
	PathStyle bool   `json:"path_style"`
}

type ChunkConfig struct {
	Size    int `json:"size"`
	Overlap int `json:"overlap"`
}

type ModelConfig struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type EmbedCacheConfig struct {
	Size       int `json:"size"`
	TTLMinutes int `json:"ttl_minutes"`
}

type AIConfig struct {
	Providers         map[string]interface{} `json:"providers"`
	Chat              []ModelConfig          `json:"chat"`
	Embed             []ModelConfig          `json:"embed"`
	Timeout           int                    `json:"timeout"`
	RequestsPerSecond float64                `json:"requests_per_second"`
	EmbedCache        EmbedCacheConfig       `json:"embed_cache"`
	QueryRetries      int                    `json:"query_retries"`
}

type RetrievalConfig struct {
	TopK     int     `json:"top_k"`
	MinScore float32 `json:"min_score"`
}

type AgentConfig struct {
	MaxToolRounds int    `json:"max_tool_rounds"`
	ThreadID      string `json:"thread_id"`
	Subject       string `json:"subject"`
	SystemPrompt  string `json:"system_prompt"`

	// Fallback texts shown when a turn fails; empty keeps the built-in wording.
	UnableAnswer       string `json:"unable_answer"`
	InsufficientAnswer string `json:"insufficient_answer"`
}

type MemoryConfig struct {
	IdleTTLMinutes int    `json:"idle_ttl_minutes"`
	SweepSpec      string `json:"sweep_spec"`
}

type ServerConfig struct {
	Port           int      `json:"port"`
	JWTSecret      string   `json:"jwt_secret"`
	TurnIntervalMs int      `json:"turn_interval_ms"`
	CORSOrigins    []string `json:"cors_origins"`
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} with the JSON-escaped value of VAR.
func expandEnv(raw []byte) []byte {
	return envRef.ReplaceAllFunc(raw, func(m []byte) []byte {
		name := string(envRef.FindSubmatch(m)[1])
		quoted, _ := json.Marshal(os.Getenv(name))
		return quoted[1 : len(quoted)-1]
	})
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(expandEnv(raw), &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Document.Source == "" {
		cfg.Document.Source = "local"
	}
	if cfg.Chunk.Size == 0 {
		cfg.Chunk.Size = 1000
	}
	if cfg.Chunk.Overlap == 0 {
		cfg.Chunk.Overlap = 200
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 60
	}
	if cfg.AI.EmbedCache.Size == 0 {
		cfg.AI.EmbedCache.Size = 1024
	}
	if cfg.AI.EmbedCache.TTLMinutes == 0 {
		cfg.AI.EmbedCache.TTLMinutes = 120
	}
	if cfg.AI.QueryRetries == 0 {
		cfg.AI.QueryRetries = 3
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 2
	}
	if cfg.Agent.MaxToolRounds == 0 {
		cfg.Agent.MaxToolRounds = 5
	}
	if cfg.Agent.ThreadID == "" {
		cfg.Agent.ThreadID = "1"
	}
	if cfg.Memory.SweepSpec == "" {
		cfg.Memory.SweepSpec = "*/10 * * * *"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	providers := make(map[string]interface{}, len(cfg.AI.Providers))
	for name, args := range cfg.AI.Providers {
		providers[strings.ToLower(strings.TrimSpace(name))] = args
	}
	cfg.AI.Providers = providers
}

func validate(cfg *Config) error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), appErr.ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Document.Path) == "" {
		return invalid("document.path is required")
	}
	switch cfg.Document.Source {
	case "local":
	case "s3":
		if cfg.Document.S3.Bucket == "" {
			return invalid("document.s3.bucket is required for s3 source")
		}
	default:
		return invalid("document.source must be local or s3")
	}
	if cfg.Chunk.Size < 0 || cfg.Chunk.Overlap < 0 || cfg.Chunk.Overlap >= cfg.Chunk.Size {
		return invalid("chunk.overlap (%d) must be positive and below chunk.size (%d)", cfg.Chunk.Overlap, cfg.Chunk.Size)
	}
	if len(cfg.AI.Chat) == 0 {
		return invalid("ai.chat needs at least one model")
	}
	if len(cfg.AI.Embed) == 0 {
		return invalid("ai.embed needs at least one model")
	}
	for _, m := range append(append([]ModelConfig{}, cfg.AI.Chat...), cfg.AI.Embed...) {
		if strings.TrimSpace(m.Provider) == "" {
			return invalid("ai model provider is required")
		}
	}
	if cfg.AI.Timeout < 0 || cfg.AI.RequestsPerSecond < 0 || cfg.AI.QueryRetries < 0 {
		return invalid("ai timeout, requests_per_second and query_retries must not be negative")
	}
	if cfg.Retrieval.TopK < 1 {
		return invalid("retrieval.top_k must be >= 1")
	}
	if cfg.Retrieval.MinScore < 0 || cfg.Retrieval.MinScore > 1 {
		return invalid("retrieval.min_score must be within [0, 1]")
	}
	if cfg.Agent.MaxToolRounds < 1 {
		return invalid("agent.max_tool_rounds must be >= 1")
	}
	if cfg.Memory.IdleTTLMinutes < 0 {
		return invalid("memory.idle_ttl_minutes must not be negative")
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return invalid("server.port out of range")
	}
	if cfg.Server.TurnIntervalMs < 0 {
		return invalid("server.turn_interval_ms must not be negative")
	}
	return nil
}
