package llm

import "context"

// ProviderName identifies an LLM provider.
type ProviderName string

// Provider name constants.
const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderAnthropic ProviderName = "anthropic"
)

// Priority constants for provider ordering.
const (
	PriorityPrimary  = 100 // Configured LLM_PROVIDER
	PriorityFallback = 50  // Any other provider with credentials
)

// Request is one chat-completion call: a system instruction, a user turn and sampling settings.
type Request struct {
	System      string
	User        string
	Model       string
	Temperature float32
}

// Provider defines the interface for LLM providers.
type Provider interface {
	// Name returns the provider identifier.
	Name() ProviderName

	// IsAvailable returns true if the provider is configured and available.
	IsAvailable() bool

	// Priority returns the provider priority (higher = preferred).
	Priority() int

	// Complete returns the text content of the first choice.
	Complete(ctx context.Context, req Request) (string, error)
}
