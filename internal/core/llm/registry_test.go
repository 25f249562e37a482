package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
)

type fakeProvider struct {
	name      ProviderName
	priority  int
	available bool
	reply     string
	err       error
	calls     int
}

func (f *fakeProvider) Name() ProviderName { return f.name }
func (f *fakeProvider) IsAvailable() bool  { return f.available }
func (f *fakeProvider) Priority() int      { return f.priority }

func (f *fakeProvider) Complete(_ context.Context, _ Request) (string, error) {
	f.calls++
	return f.reply, f.err
}

var testCircuit = CircuitBreakerConfig{Threshold: 2, ResetAfter: time.Minute}

func TestRegistry_PriorityOrder(t *testing.T) {
	logger := zerolog.Nop()
	r := NewRegistry(&logger)

	low := &fakeProvider{name: ProviderAnthropic, priority: PriorityFallback, available: true, reply: "low"}
	high := &fakeProvider{name: ProviderOpenAI, priority: PriorityPrimary, available: true, reply: "high"}

	r.Register(low, testCircuit)
	r.Register(high, testCircuit)

	got, err := r.Complete(context.Background(), Request{User: "x"})
	require.NoError(t, err)
	assert.Equal(t, "high", got)
	assert.Equal(t, 0, low.calls)
}

func TestRegistry_Fallback(t *testing.T) {
	logger := zerolog.Nop()
	r := NewRegistry(&logger)

	primary := &fakeProvider{name: ProviderOpenAI, priority: PriorityPrimary, available: true, err: errors.New("boom")}
	fallback := &fakeProvider{name: ProviderAnthropic, priority: PriorityFallback, available: true, reply: "[1]"}

	r.Register(primary, testCircuit)
	r.Register(fallback, testCircuit)

	got, err := r.Complete(context.Background(), Request{User: "x"})
	require.NoError(t, err)
	assert.Equal(t, "[1]", got)
	assert.Equal(t, 1, primary.calls)
}

func TestRegistry_AllFail(t *testing.T) {
	logger := zerolog.Nop()
	r := NewRegistry(&logger)

	r.Register(&fakeProvider{name: ProviderOpenAI, priority: PriorityPrimary, available: true, err: errors.New("boom")}, testCircuit)

	_, err := r.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, apperrors.ErrAllProvidersFailed)
}

func TestRegistry_NoProviders(t *testing.T) {
	logger := zerolog.Nop()
	r := NewRegistry(&logger)

	_, err := r.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, apperrors.ErrNoProvidersAvailable)

	r.Register(&fakeProvider{name: ProviderOpenAI, available: false}, testCircuit)

	_, err = r.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, apperrors.ErrNoProvidersAvailable)
}

func TestRegistry_CircuitOpensAfterThreshold(t *testing.T) {
	logger := zerolog.Nop()
	r := NewRegistry(&logger)

	p := &fakeProvider{name: ProviderOpenAI, priority: PriorityPrimary, available: true, err: errors.New("down")}
	r.Register(p, testCircuit)

	for i := 0; i < 3; i++ {
		_, _ = r.Complete(context.Background(), Request{})
	}

	assert.Equal(t, 2, p.calls, "provider should be skipped once the circuit is open")

	_, err := r.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, apperrors.ErrNoProvidersAvailable)
	assert.ErrorIs(t, err, apperrors.ErrCircuitBreakerOpen)

	statuses := r.GetProviderStatuses()
	require.Len(t, statuses, 1)
	assert.False(t, statuses[0].CircuitBreakerOK)
}

func TestCircuitBreaker_ResetsAfterTimeout(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	cb := NewCircuitBreaker(CircuitBreakerConfig{Threshold: 1, ResetAfter: time.Minute}, nil)
	cb.now = func() time.Time { return now }

	cb.RecordFailure(ProviderOpenAI)
	assert.False(t, cb.CanAttempt())
	assert.ErrorIs(t, cb.CheckCircuit(), apperrors.ErrCircuitBreakerOpen)

	now = now.Add(2 * time.Minute)
	assert.True(t, cb.CanAttempt())
	assert.NoError(t, cb.CheckCircuit())
}
