// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Configuration errors. These are the only fatal errors of a run.
var (
	// ErrConfiguration indicates required settings are absent or invalid.
	ErrConfiguration = errors.New("configuration error")
)

// Semantic judgment errors. Never fatal; recovered by failing open.
var (
	// ErrTransientExternal indicates the semantic service call failed (network, timeout, non-2xx).
	ErrTransientExternal = errors.New("semantic service call failed")

	// ErrMalformedResponse indicates the reply contained no parseable index array.
	ErrMalformedResponse = errors.New("malformed judgment response")

	// ErrEmptyResponse indicates an empty response was received.
	ErrEmptyResponse = errors.New("empty response")
)

// Provider errors.
var (
	// ErrCircuitBreakerOpen indicates the circuit breaker has tripped and requests are blocked.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

	// ErrNoProvidersAvailable indicates no LLM provider is registered or available.
	ErrNoProvidersAvailable = errors.New("no LLM providers available")

	// ErrAllProvidersFailed indicates every registered provider failed.
	ErrAllProvidersFailed = errors.New("all LLM providers failed")
)

// Telegram entity resolution errors.
var (
	// ErrChannelNotFound indicates the channel is not among the account's dialogs.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrMessageNotFound indicates the original message is gone or inaccessible.
	ErrMessageNotFound = errors.New("message not found")

	// ErrTargetNotFound indicates the delivery target is not among the account's dialogs.
	ErrTargetNotFound = errors.New("target user not found")
)

// Artifact errors.
var (
	// ErrArtifactNotFound indicates a hand-off document does not exist yet.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrArtifactCorrupt indicates a hand-off document exists but cannot be decoded.
	ErrArtifactCorrupt = errors.New("artifact corrupt")
)
