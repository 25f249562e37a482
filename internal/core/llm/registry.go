package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
	"github.com/lueurxax/telegram-relay/internal/platform/observability"
)

// Registry manages LLM providers with fallback support.
type Registry struct {
	mu              sync.RWMutex
	providers       map[ProviderName]Provider
	order           []ProviderName // Priority order (highest first)
	circuitBreakers map[ProviderName]*CircuitBreaker
	logger          *zerolog.Logger
}

// NewRegistry creates a new provider registry.
func NewRegistry(logger *zerolog.Logger) *Registry {
	return &Registry{
		providers:       make(map[ProviderName]Provider),
		order:           make([]ProviderName, 0),
		circuitBreakers: make(map[ProviderName]*CircuitBreaker),
		logger:          logger,
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider, cfg CircuitBreakerConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	}

	r.providers[name] = p
	r.circuitBreakers[name] = NewCircuitBreaker(cfg, r.logger)

	sort.SliceStable(r.order, func(i, j int) bool {
		return r.providers[r.order[i]].Priority() > r.providers[r.order[j]].Priority()
	})

	r.logger.Info().
		Str(logKeyProvider, string(name)).
		Int("priority", p.Priority()).
		Bool("available", p.IsAvailable()).
		Msg("registered LLM provider")
}

// ProviderCount returns the number of registered providers.
func (r *Registry) ProviderCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.providers)
}

// Complete tries providers in priority order and returns the first successful completion.
func (r *Registry) Complete(ctx context.Context, req Request) (string, error) {
	r.mu.RLock()
	order := append([]ProviderName(nil), r.order...)
	r.mu.RUnlock()

	if len(order) == 0 {
		return "", apperrors.ErrNoProvidersAvailable
	}

	var (
		lastErr  error
		skipErr  error
		previous ProviderName
	)

	for _, name := range order {
		result, attempted, err := r.try(ctx, name, req)
		if !attempted {
			if err != nil {
				skipErr = err
			}

			continue
		}

		if err != nil {
			lastErr = err

			if previous == "" {
				previous = name
			}

			continue
		}

		if previous != "" {
			r.logger.Info().
				Str(logKeyProvider, string(name)).
				Str("from_provider", string(previous)).
				Msg("used fallback LLM provider")
		}

		return result, nil
	}

	if lastErr != nil {
		return "", errors.Join(apperrors.ErrAllProvidersFailed, lastErr)
	}

	if skipErr != nil {
		return "", errors.Join(apperrors.ErrNoProvidersAvailable, skipErr)
	}

	return "", apperrors.ErrNoProvidersAvailable
}

// try runs one provider behind its circuit breaker. attempted is false when it was skipped.
func (r *Registry) try(ctx context.Context, name ProviderName, req Request) (result string, attempted bool, err error) {
	r.mu.RLock()
	p := r.providers[name]
	cb := r.circuitBreakers[name]
	r.mu.RUnlock()

	if p == nil || !p.IsAvailable() {
		return "", false, nil
	}

	if err := cb.CheckCircuit(); err != nil {
		r.logger.Debug().Err(err).Str(logKeyProvider, string(name)).Msg(logMsgCircuitBreakerOpen)

		return "", false, fmt.Errorf("%s: %w", name, err)
	}

	start := time.Now()
	result, err = p.Complete(ctx, req)
	duration := time.Since(start)

	observability.LLMRequestDuration.WithLabelValues(string(name)).Observe(duration.Seconds())

	if err != nil {
		cb.RecordFailure(name)

		r.logger.Warn().
			Err(err).
			Str(logKeyProvider, string(name)).
			Str(logKeyModel, req.Model).
			Float64("duration_seconds", duration.Seconds()).
			Msg("LLM provider failed, trying fallback")

		return "", true, err
	}

	cb.RecordSuccess()

	return result, true, nil
}

// ProviderStatus holds status information for a provider.
type ProviderStatus struct {
	Name             ProviderName
	Priority         int
	Available        bool
	CircuitBreakerOK bool
}

// GetProviderStatuses returns status information for all registered providers.
func (r *Registry) GetProviderStatuses() []ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]ProviderStatus, 0, len(r.order))

	for _, name := range r.order {
		p := r.providers[name]
		statuses = append(statuses, ProviderStatus{
			Name:             name,
			Priority:         p.Priority(),
			Available:        p.IsAvailable(),
			CircuitBreakerOK: r.circuitBreakers[name].CanAttempt(),
		})
	}

	return statuses
}
