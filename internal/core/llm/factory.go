package llm

import (
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-relay/internal/platform/config"
)

// NewFromConfig builds a registry with the configured provider first and the
// other provider as fallback when it has credentials.
func NewFromConfig(cfg *config.Config, logger *zerolog.Logger) *Registry {
	registry := NewRegistry(logger)
	cb := CircuitBreakerConfig{Threshold: cfg.LLMCircuitThreshold, ResetAfter: cfg.LLMCircuitTimeout}

	openaiPriority, anthropicPriority := PriorityPrimary, PriorityFallback
	if cfg.LLMProvider == config.ProviderAnthropic {
		openaiPriority, anthropicPriority = PriorityFallback, PriorityPrimary
	}

	registry.Register(NewOpenAIProvider(OpenAIConfig{
		BaseURL:  cfg.LLMBaseURL,
		APIKey:   cfg.LLMAPIKey,
		Model:    cfg.LLMModel,
		Timeout:  cfg.LLMTimeout,
		Priority: openaiPriority,
	}, logger), cb)

	if cfg.AnthropicAPIKey != "" {
		registry.Register(NewAnthropicProvider(AnthropicConfig{
			APIKey:   cfg.AnthropicAPIKey,
			Model:    cfg.AnthropicModel,
			Timeout:  cfg.LLMTimeout,
			Priority: anthropicPriority,
		}, logger), cb)
	}

	return registry
}
