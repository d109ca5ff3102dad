package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "3001" {
		t.Errorf("Port = %q, want 3001", cfg.Port)
	}
	if cfg.NasaAPIKey != "" || cfg.OpenAIKey != "" {
		t.Error("credentials should default to empty")
	}
	if cfg.Nasa.BaseURL != "https://api.nasa.gov/neo/rest/v1" {
		t.Errorf("Nasa.BaseURL = %q", cfg.Nasa.BaseURL)
	}
	if cfg.AI.Model != "gpt-4" || cfg.AI.MaxTokens != 1000 || cfg.AI.Temperature != 0.8 {
		t.Errorf("AI = %+v", cfg.AI)
	}
	if cfg.RateLimitWindow() != 15*time.Minute || cfg.HTTP.RateLimitRequests != 100 {
		t.Errorf("rate limit = %d per %v", cfg.HTTP.RateLimitRequests, cfg.RateLimitWindow())
	}
	if cfg.SweepInterval() != 10*time.Minute {
		t.Errorf("SweepInterval = %v", cfg.SweepInterval())
	}
	if cfg.AITimeout() != time.Minute || cfg.NasaTimeout() != 30*time.Second {
		t.Errorf("timeouts = %v / %v", cfg.AITimeout(), cfg.NasaTimeout())
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"NASA_API_KEY":         "nasa-key",
		"OPENAI_KEY":           "openai-key",
		"PORT":                 "8080",
		"AI_TIMEOUT_SECONDS":   "90",
		"LOG_FORMAT":           "console",
		"BREAKER_MIN_REQUESTS": "10",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.NasaAPIKey != "nasa-key" || cfg.OpenAIKey != "openai-key" {
		t.Error("credentials not loaded")
	}
	if cfg.Port != "8080" || cfg.AITimeout() != 90*time.Second {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Log.Format != "console" || cfg.Breaker.MinRequests != 10 {
		t.Errorf("nested overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"AI_TIMEOUT_SECONDS":    "0",
		"RATE_LIMIT_REQUESTS":   "-1",
		"BREAKER_FAILURE_RATIO": "1.5",
		"AI_TEMPERATURE":        "3",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{key: value}))
			if err == nil || !strings.Contains(err.Error(), key) {
				t.Errorf("expected error mentioning %s, got %v", key, err)
			}
		})
	}
}
