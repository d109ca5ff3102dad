// Package config provides application configuration from environment variables
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// AppConfig holds all application configuration
type AppConfig struct {
	Port    string `env:"PORT,default=3001"`
	GinMode string `env:"GIN_MODE,default=release"`

	// Credentials are optional at startup; their absence surfaces as a
	// configuration error on first use.
	NasaAPIKey string `env:"NASA_API_KEY"`
	OpenAIKey  string `env:"OPENAI_KEY"`

	Nasa    NasaConfig
	AI      AIConfig
	HTTP    HTTPConfig
	Cache   CacheConfig
	Breaker BreakerConfig
	Log     LogConfig
}

// NasaConfig configures the NeoWs upstream
type NasaConfig struct {
	BaseURL        string `env:"NASA_BASE_URL,default=https://api.nasa.gov/neo/rest/v1"`
	TimeoutSeconds int    `env:"NASA_TIMEOUT_SECONDS,default=30"`
}

// AIConfig configures the text generation provider
type AIConfig struct {
	Model          string  `env:"OPENAI_MODEL,default=gpt-4"`
	BaseURL        string  `env:"OPENAI_BASE_URL"`
	TimeoutSeconds int     `env:"AI_TIMEOUT_SECONDS,default=60"`
	MaxTokens      int     `env:"AI_MAX_TOKENS,default=1000"`
	Temperature    float32 `env:"AI_TEMPERATURE,default=0.8"`
}

// HTTPConfig configures the inbound HTTP surface
type HTTPConfig struct {
	FrontendURL            string `env:"FRONTEND_URL,default=http://localhost:3000"`
	RateLimitRequests      int    `env:"RATE_LIMIT_REQUESTS,default=100"`
	RateLimitWindowSeconds int    `env:"RATE_LIMIT_WINDOW_SECONDS,default=900"`
}

// CacheConfig configures the response cache
type CacheConfig struct {
	SweepSeconds int `env:"CACHE_SWEEP_SECONDS,default=600"`
}

// BreakerConfig configures the upstream circuit breaker
type BreakerConfig struct {
	MinRequests     uint32  `env:"BREAKER_MIN_REQUESTS,default=5"`
	FailureRatio    float64 `env:"BREAKER_FAILURE_RATIO,default=0.6"`
	CooldownSeconds int     `env:"BREAKER_COOLDOWN_SECONDS,default=30"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=json"`
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*AppConfig, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the service cannot run with
func (c *AppConfig) Validate() error {
	switch {
	case c.Nasa.TimeoutSeconds <= 0:
		return fmt.Errorf("NASA_TIMEOUT_SECONDS must be positive, got %d", c.Nasa.TimeoutSeconds)
	case c.AI.TimeoutSeconds <= 0:
		return fmt.Errorf("AI_TIMEOUT_SECONDS must be positive, got %d", c.AI.TimeoutSeconds)
	case c.AI.MaxTokens <= 0:
		return fmt.Errorf("AI_MAX_TOKENS must be positive, got %d", c.AI.MaxTokens)
	case c.AI.Temperature < 0 || c.AI.Temperature > 2:
		return fmt.Errorf("AI_TEMPERATURE must be within [0,2], got %v", c.AI.Temperature)
	case c.HTTP.RateLimitRequests <= 0:
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.HTTP.RateLimitRequests)
	case c.HTTP.RateLimitWindowSeconds <= 0:
		return fmt.Errorf("RATE_LIMIT_WINDOW_SECONDS must be positive, got %d", c.HTTP.RateLimitWindowSeconds)
	case c.Cache.SweepSeconds <= 0:
		return fmt.Errorf("CACHE_SWEEP_SECONDS must be positive, got %d", c.Cache.SweepSeconds)
	case c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1:
		return fmt.Errorf("BREAKER_FAILURE_RATIO must be within (0,1], got %v", c.Breaker.FailureRatio)
	case c.Breaker.CooldownSeconds <= 0:
		return fmt.Errorf("BREAKER_COOLDOWN_SECONDS must be positive, got %d", c.Breaker.CooldownSeconds)
	}
	return nil
}

// NasaTimeout returns the upstream client timeout
func (c *AppConfig) NasaTimeout() time.Duration {
	return time.Duration(c.Nasa.TimeoutSeconds) * time.Second
}

// AITimeout returns the text generation timeout
func (c *AppConfig) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}

// RateLimitWindow returns the sliding window length
func (c *AppConfig) RateLimitWindow() time.Duration {
	return time.Duration(c.HTTP.RateLimitWindowSeconds) * time.Second
}

// SweepInterval returns the cache expiry sweep interval
func (c *AppConfig) SweepInterval() time.Duration {
	return time.Duration(c.Cache.SweepSeconds) * time.Second
}

// BreakerCooldown returns how long the breaker stays open
func (c *AppConfig) BreakerCooldown() time.Duration {
	return time.Duration(c.Breaker.CooldownSeconds) * time.Second
}
