package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	BackendRemote   = "remote"
	BackendEmbedded = "embedded"

	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type ServerConfig struct {
	Addr     string `toml:"addr"`
	LogLevel string `toml:"log_level"`
	// MaxConcurrentRuns caps pipeline runs executing at once.
	MaxConcurrentRuns int `toml:"max_concurrent_runs"`
}

type BackendConfig struct {
	Mode string `toml:"mode"`
}

type UpstreamConfig struct {
	BaseURL        string `toml:"base_url"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSeconds) * time.Second
}

type PollingConfig struct {
	IntervalSeconds int `toml:"interval_seconds"`
	MaxAttempts     int `toml:"max_attempts"`
}

func (p PollingConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSeconds) * time.Second
}

type PipelineConfig struct {
	AudioTitle string `toml:"audio_title"`
	TextTitle  string `toml:"text_title"`
	Language   string `toml:"language"`
}

type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	// MaxTokens bounds a single completion.
	MaxTokens int `toml:"max_tokens"`
}

type TranscriptionConfig struct {
	Model   string `toml:"model"`
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	// Store is where job records live: "memory" or "redis".
	Store         string `toml:"store"`
	JobTTLSeconds int    `toml:"job_ttl_seconds"`
	KeyPrefix     string `toml:"key_prefix"`
}

func (t TranscriptionConfig) JobTTL() time.Duration {
	return time.Duration(t.JobTTLSeconds) * time.Second
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type RedisConfig struct {
	URL string `toml:"url"`
}

// PromptsConfig holds the admin-managed prompt templates. The analysis
// template receives the transcript through a {{transcript}} placeholder.
type PromptsConfig struct {
	Analysis string `toml:"analysis"`
}

type Config struct {
	Server        ServerConfig        `toml:"server"`
	Backend       BackendConfig       `toml:"backend"`
	Upstream      UpstreamConfig      `toml:"upstream"`
	Polling       PollingConfig       `toml:"polling"`
	Pipeline      PipelineConfig      `toml:"pipeline"`
	LLM           LLMConfig           `toml:"llm"`
	Transcription TranscriptionConfig `toml:"transcription"`
	Memgraph      MemgraphConfig      `toml:"memgraph"`
	Redis         RedisConfig         `toml:"redis"`
	Prompts       PromptsConfig       `toml:"prompts"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Addr: ":8080", LogLevel: "info", MaxConcurrentRuns: 8},
		Backend:  BackendConfig{Mode: BackendRemote},
		Upstream: UpstreamConfig{BaseURL: "http://localhost:8000/api", TimeoutSeconds: 60},
		Polling:  PollingConfig{IntervalSeconds: 5, MaxAttempts: 60},
		Pipeline: PipelineConfig{
			AudioTitle: "Audio Analysis Session",
			TextTitle:  "Text Analysis Session",
			Language:   "en",
		},
		LLM: LLMConfig{Provider: "openai", Model: "gpt-4o-mini", MaxTokens: 2000},
		Transcription: TranscriptionConfig{
			Model:         "whisper-1",
			Store:         StoreMemory,
			JobTTLSeconds: 3600,
			KeyPrefix:     "insightflow:transcription:",
		},
		Memgraph: MemgraphConfig{URI: "bolt://localhost:7687"},
		Redis:    RedisConfig{URL: "redis://localhost:6379/0"},
		Prompts:  PromptsConfig{Analysis: DefaultAnalysisPrompt},
	}
}

// Load reads the TOML file at path over the defaults. A missing file is not
// an error. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables read via getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	str := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	if port := strings.TrimSpace(getenv("PORT")); port != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(port, ":")
	}
	str(&c.Server.LogLevel, "LOG_LEVEL")
	str(&c.Backend.Mode, "BACKEND_MODE")
	str(&c.Upstream.BaseURL, "UPSTREAM_BASE_URL")
	str(&c.Upstream.Token, "UPSTREAM_TOKEN")
	str(&c.LLM.Provider, "LLM_PROVIDER")
	str(&c.LLM.Model, "LLM_MODEL")
	str(&c.LLM.APIKey, "LLM_API_KEY")
	str(&c.LLM.BaseURL, "LLM_BASE_URL")
	str(&c.Transcription.Model, "TRANSCRIBE_MODEL")
	str(&c.Transcription.APIKey, "TRANSCRIBE_API_KEY")
	str(&c.Transcription.Store, "TRANSCRIBE_STORE")
	str(&c.Memgraph.URI, "MEMGRAPH_URI")
	str(&c.Memgraph.User, "MEMGRAPH_USER")
	str(&c.Memgraph.Password, "MEMGRAPH_PASSWORD")
	str(&c.Redis.URL, "REDIS_URL")
	if n, err := strconv.Atoi(strings.TrimSpace(getenv("POLL_MAX_ATTEMPTS"))); err == nil {
		c.Polling.MaxAttempts = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(getenv("POLL_INTERVAL_SECONDS"))); err == nil {
		c.Polling.IntervalSeconds = n
	}
	if c.Transcription.APIKey == "" && strings.EqualFold(c.LLM.Provider, "openai") {
		c.Transcription.APIKey = c.LLM.APIKey
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.Polling.IntervalSeconds <= 0 {
		return fmt.Errorf("polling.interval_seconds must be positive, got %d", c.Polling.IntervalSeconds)
	}
	if c.Polling.MaxAttempts <= 0 {
		return fmt.Errorf("polling.max_attempts must be positive, got %d", c.Polling.MaxAttempts)
	}
	if c.Server.MaxConcurrentRuns <= 0 {
		return fmt.Errorf("server.max_concurrent_runs must be positive, got %d", c.Server.MaxConcurrentRuns)
	}
	switch strings.ToLower(c.Backend.Mode) {
	case BackendRemote:
		if c.Upstream.BaseURL == "" {
			return errors.New("upstream.base_url is required in remote mode")
		}
	case BackendEmbedded:
		if c.Memgraph.URI == "" {
			return errors.New("memgraph.uri is required in embedded mode")
		}
		if !strings.Contains(c.Prompts.Analysis, TranscriptPlaceholder) {
			return fmt.Errorf("prompts.analysis must contain %s", TranscriptPlaceholder)
		}
		switch c.Transcription.Store {
		case StoreMemory, StoreRedis:
		default:
			return fmt.Errorf("unknown transcription.store %q", c.Transcription.Store)
		}
	default:
		return fmt.Errorf("unknown backend.mode %q (want %s or %s)", c.Backend.Mode, BackendRemote, BackendEmbedded)
	}
	return nil
}
