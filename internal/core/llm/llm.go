// Package llm talks to the external semantic-judgment service.
package llm

import "context"

// Completer is what the classifier needs from the semantic service.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Log key constants.
const (
	logKeyProvider = "provider"
	logKeyModel    = "model"
)

const logMsgCircuitBreakerOpen = "circuit breaker open, skipping provider"
