package judge

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Gate paces calls to the semantic service.
type Gate interface {
	Wait(ctx context.Context) error
}

// NewIntervalGate allows one call per interval. A zero interval never waits.
func NewIntervalGate(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}

	return rate.NewLimiter(rate.Every(interval), 1)
}
