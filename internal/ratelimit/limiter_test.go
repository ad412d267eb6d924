package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_CheckBudget(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCounterStore()
	limiter := NewLimiter(store, "test", 3, time.Hour)

	// Fresh window has budget
	assert.NoError(t, limiter.CheckBudget(ctx))

	limiter.Consume(ctx)
	limiter.Consume(ctx)
	assert.NoError(t, limiter.CheckBudget(ctx))

	limiter.Consume(ctx)
	assert.ErrorIs(t, limiter.CheckBudget(ctx), ErrQuotaExceeded)
}

func TestLimiter_CheckBudgetDoesNotIncrement(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCounterStore()
	limiter := NewLimiter(store, "test", 1, time.Hour)

	limiter.Consume(ctx)

	// Repeated checks at the ceiling must not advance the counter
	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, limiter.CheckBudget(ctx), ErrQuotaExceeded)
	}

	count, err := store.Get(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestLimiter_WindowSlidingReset(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCounterStore()
	limiter := NewLimiter(store, "test", 2, 20*time.Millisecond)

	limiter.Consume(ctx)
	limiter.Consume(ctx)
	assert.ErrorIs(t, limiter.CheckBudget(ctx), ErrQuotaExceeded)

	// Window expires from the first increment, then the budget is fresh
	time.Sleep(30 * time.Millisecond)
	assert.NoError(t, limiter.CheckBudget(ctx))

	count, err := store.Get(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestMemoryCounterStore_ExpiryArmsOnFirstIncrement(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCounterStore()

	_, err := store.Increment(ctx, "k", 50*time.Millisecond)
	require.NoError(t, err)

	// Later increments within the window must not re-arm the expiry
	time.Sleep(30 * time.Millisecond)
	_, err = store.Increment(ctx, "k", 50*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	count, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count, "window should have expired from first increment")
}
