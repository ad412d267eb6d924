package fetcher

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer shapes the request rate against Reddit's unstated soft limits.
// It is a policy object rather than inline sleeps so it can be swapped for a
// different bucket or disabled in tests.
type Pacer interface {
	Wait(ctx context.Context) error
}

// DelayPacer enforces a fixed minimum interval between calls. It rides on a
// token bucket with a single slot, which makes the very first call free and
// every later call wait out the remainder of the interval.
type DelayPacer struct {
	limiter *rate.Limiter
}

// NewDelayPacer creates a pacer with the given inter-call interval.
func NewDelayPacer(interval time.Duration) *DelayPacer {
	return &DelayPacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (p *DelayPacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// NopPacer applies no pacing, used in tests.
type NopPacer struct{}

func (NopPacer) Wait(context.Context) error { return nil }
