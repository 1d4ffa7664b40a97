// Package config loads the optional agentkit YAML configuration and fills
// gaps from the environment. Missing configuration never fails startup; it
// surfaces later as compute-time errors in the handlers that need it.
package config

import (
	"os"
	"time"

	"github.com/effective-security/x/configloader"
	"github.com/effective-security/x/values"
)

// Environment fallbacks, read when the file leaves a field empty.
const (
	EnvOpenAIToken   = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	EnvRedisAddr     = "REDIS_ADDR"
)

// Config is the agentkit process configuration.
type Config struct {
	OpenAI OpenAIConfig `json:"open_ai" yaml:"open_ai"`
	Redis  RedisConfig  `json:"redis" yaml:"redis"`
}

// OpenAIConfig configures the embeddings and completion client.
type OpenAIConfig struct {
	Token          string `json:"token,omitempty" yaml:"token,omitempty"`
	BaseURL        string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model          string `json:"model,omitempty" yaml:"model,omitempty"`
	EmbeddingModel string `json:"embedding_model,omitempty" yaml:"embedding_model,omitempty"`
}

// RedisConfig configures the optional shared payload cache.
type RedisConfig struct {
	Addr   string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	TTL    string `json:"ttl,omitempty" yaml:"ttl,omitempty"`
}

// CacheTTL parses the configured TTL, defaulting to 5 minutes.
func (c *RedisConfig) CacheTTL() time.Duration {
	if d, err := time.ParseDuration(c.TTL); err == nil && d > 0 {
		return d
	}
	return 5 * time.Minute
}

// LoadConfig reads the file when given, then applies environment fallbacks.
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file != "" {
		if err := configloader.UnmarshalAndExpand(file, cfg); err != nil {
			return nil, err
		}
	}

	cfg.OpenAI.Token = values.StringsCoalesce(cfg.OpenAI.Token, os.Getenv(EnvOpenAIToken))
	cfg.OpenAI.BaseURL = values.StringsCoalesce(cfg.OpenAI.BaseURL, os.Getenv(EnvOpenAIBaseURL))
	cfg.Redis.Addr = values.StringsCoalesce(cfg.Redis.Addr, os.Getenv(EnvRedisAddr))
	cfg.Redis.Prefix = values.StringsCoalesce(cfg.Redis.Prefix, "agentkit")
	return cfg, nil
}
