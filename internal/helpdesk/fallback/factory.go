package fallback

import (
	"fmt"
	"strings"
	"time"

	"erp-helpdesk-workers/internal/common/config"
	"erp-helpdesk-workers/internal/common/logger"
)

const defaultGenAIRetries = 2

// NewProvider builds the provider named by cfg.Provider, wrapped in a rate limiter.
func NewProvider(cfg config.GenAIConfig) (Provider, error) {
	var p Provider
	switch strings.ToLower(cfg.Provider) {
	case "genai":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("genai provider requires base_url")
		}
		p = NewGenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, defaultGenAIRetries)

	case "ollama":
		host := cfg.BaseURL
		if host == "" {
			host = "http://localhost:11434"
		}
		p = NewOllamaProvider(host, cfg.Model)

	case "openrouter":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openrouter provider requires api_key")
		}
		p = NewOpenAIProvider("openrouter", firstNonEmpty(cfg.BaseURL, OpenRouterBaseURL), cfg.APIKey, cfg.Model)

	case "deepseek":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("deepseek provider requires api_key")
		}
		p = NewOpenAIProvider("deepseek", firstNonEmpty(cfg.BaseURL, DeepSeekBaseURL), cfg.APIKey, cfg.Model)

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Provider)
	}

	return NewRateLimitedProvider(p, cfg.RatePerMinute), nil
}

// NewFromConfig wires provider, breaker and adapter options from configuration.
func NewFromConfig(cfg config.GenAIConfig, log logger.Logger) (*Adapter, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	breaker := NewCircuitBreaker(provider.Name(), cfg.BreakerFailures,
		time.Duration(cfg.BreakerCooldown)*time.Millisecond, log)

	return NewAdapter(provider, breaker, Options{
		Timeout:        time.Duration(cfg.Timeout) * time.Millisecond,
		ReacquireAfter: time.Duration(cfg.ReacquireAfter) * time.Millisecond,
		MaxTokens:      cfg.MaxTokens,
		Temperature:    cfg.Temperature,
	}, log), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
