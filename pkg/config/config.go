// Package config loads and validates the ragline configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Vector    VectorConfig    `yaml:"vector"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	WebSearch WebSearchConfig `yaml:"web_search"`
	History   HistoryConfig   `yaml:"history"`
	Agent     AgentConfig     `yaml:"agent"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LLMConfig configures the chat model.
type LLMConfig struct {
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// EmbedderConfig configures the embedding model.
type EmbedderConfig struct {
	Model     string        `yaml:"model"`
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	Dimension int           `yaml:"dimension"`
	Timeout   time.Duration `yaml:"timeout"`
}

// VectorConfig configures the vector store backend.
type VectorConfig struct {
	// Provider is "chromem" or "qdrant".
	Provider   string `yaml:"provider"`
	Collection string `yaml:"collection"`

	// Path is the chromem persistence path. Empty means in-memory.
	Path string `yaml:"path"`

	// Host/Port/APIKey/UseTLS apply to qdrant.
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key,omitempty"`
	UseTLS bool   `yaml:"use_tls,omitempty"`
}

// RetrievalConfig configures context retrieval.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`

	// Threshold is a pointer so an explicit 0 (keep everything) is
	// distinguishable from an absent key, which defaults to 0.5.
	Threshold *float64 `yaml:"threshold"`
}

// WebSearchConfig configures the Tavily web search client.
type WebSearchConfig struct {
	Enabled    bool   `yaml:"enabled"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	MaxResults int    `yaml:"max_results"`
}

// HistoryConfig configures the conversation history store.
type HistoryConfig struct {
	Path string `yaml:"path"`

	// MaxTokens caps the replayed history window. 0 means unlimited.
	MaxTokens int `yaml:"max_tokens"`
}

// AgentConfig configures the conversation loop.
type AgentConfig struct {
	MaxToolRounds int `yaml:"max_tool_rounds"`
}

// Load reads a YAML config file, expands environment variables and applies
// defaults. A missing path yields a pure-defaults config.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		expanded := ExpandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetDefaults fills in zero values.
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 2000
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 120 * time.Second
	}
	if c.Embedder.Model == "" {
		c.Embedder.Model = "text-embedding-3-small"
	}
	if c.Embedder.APIKey == "" {
		c.Embedder.APIKey = c.LLM.APIKey
	}
	if c.Embedder.BaseURL == "" {
		c.Embedder.BaseURL = "https://api.openai.com/v1"
	}
	if c.Embedder.Dimension == 0 {
		c.Embedder.Dimension = 1536
	}
	if c.Embedder.Timeout == 0 {
		c.Embedder.Timeout = 30 * time.Second
	}
	if c.Vector.Provider == "" {
		c.Vector.Provider = "chromem"
	}
	if c.Vector.Collection == "" {
		c.Vector.Collection = "documents"
	}
	if c.Vector.Path == "" && c.Vector.Provider == "chromem" {
		c.Vector.Path = "data/ragline.db"
	}
	if c.Vector.Host == "" {
		c.Vector.Host = "localhost"
	}
	if c.Vector.Port == 0 {
		c.Vector.Port = 6334
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 3
	}
	if c.Retrieval.Threshold == nil {
		threshold := 0.5
		c.Retrieval.Threshold = &threshold
	}
	if c.WebSearch.APIKey == "" {
		c.WebSearch.APIKey = os.Getenv("TAVILY_API_KEY")
	}
	if c.WebSearch.BaseURL == "" {
		c.WebSearch.BaseURL = "https://api.tavily.com"
	}
	if c.WebSearch.MaxResults == 0 {
		c.WebSearch.MaxResults = 3
	}
	if c.History.Path == "" {
		c.History.Path = "history.json"
	}
	if c.Agent.MaxToolRounds == 0 {
		c.Agent.MaxToolRounds = 8
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Vector.Provider {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("unknown vector provider: %s", c.Vector.Provider)
	}
	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("retrieval top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.Threshold != nil {
		if t := *c.Retrieval.Threshold; t < 0 || t > 1 {
			return fmt.Errorf("retrieval threshold must be in [0, 1], got %g", t)
		}
	}
	if c.Agent.MaxToolRounds < 1 || c.Agent.MaxToolRounds > 16 {
		return fmt.Errorf("agent max_tool_rounds must be in [1, 16], got %d", c.Agent.MaxToolRounds)
	}
	if c.History.MaxTokens < 0 {
		return fmt.Errorf("history max_tokens must not be negative, got %d", c.History.MaxTokens)
	}
	return nil
}
