package llm

import (
	"context"
	"fmt"
	"time"

	"clausecheck/internal/config"
	"clausecheck/internal/logging"
)

// Provider represents an LLM provider.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// NewClientFromConfig builds the client selected by cfg.Provider.
func NewClientFromConfig(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 120 * time.Second
	}

	logging.LLM("Creating LLM client: provider=%s model=%s timeout=%v", cfg.Provider, cfg.Model, timeout)

	switch Provider(cfg.Provider) {
	case ProviderOpenAI, "":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Timeout:     timeout,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}), nil
	case ProviderGemini:
		model := cfg.Model
		if model == "gpt-4o-mini" {
			// default config model belongs to the OpenAI provider
			model = ""
		}
		baseURL := cfg.BaseURL
		if baseURL == config.DefaultConfig().LLM.BaseURL {
			baseURL = ""
		}
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey:      cfg.APIKey,
			Model:       model,
			BaseURL:     baseURL,
			Timeout:     timeout,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (valid: %v)", cfg.Provider, config.ValidProviders)
	}
}
