package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrQuotaExceeded is returned by CheckBudget when the window ceiling has
// been reached. Callers should surface it distinctly from validation errors
// so clients can back off.
var ErrQuotaExceeded = errors.New("rate limit exceeded, try again later")

// Limiter enforces a sliding-window quota against the Reddit API. It fails
// fast rather than blocking: CheckBudget never queues and never increments.
type Limiter struct {
	store   CounterStore
	key     string
	ceiling int64
	window  time.Duration
}

// NewLimiter creates a limiter over the given counter store. One Consume
// covers one unit of external work (a page of posts, a comment thread), not
// one returned item.
func NewLimiter(store CounterStore, key string, ceiling int, window time.Duration) *Limiter {
	return &Limiter{
		store:   store,
		key:     key,
		ceiling: int64(ceiling),
		window:  window,
	}
}

// CheckBudget returns ErrQuotaExceeded when the counter has reached the
// ceiling. The counter is not modified.
func (l *Limiter) CheckBudget(ctx context.Context) error {
	count, err := l.store.Get(ctx, l.key)
	if err != nil {
		return err
	}
	if count >= l.ceiling {
		logrus.Warnf("Rate budget exhausted for %s: %d/%d in window", l.key, count, l.ceiling)
		return ErrQuotaExceeded
	}
	return nil
}

// Consume records one unit of external work against the window.
func (l *Limiter) Consume(ctx context.Context) {
	count, err := l.store.Increment(ctx, l.key, l.window)
	if err != nil {
		logrus.Errorf("Failed to advance rate counter %s: %v", l.key, err)
		return
	}
	logrus.Debugf("Rate counter %s at %d/%d", l.key, count, l.ceiling)
}
