package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketAllow(t *testing.T) {
	tb := NewTokenBucket(2, 0)
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
	assert.Equal(t, 0, tb.Remaining())
}

func TestTokenBucketWaitRespectsContext(t *testing.T) {
	tb := NewTokenBucket(1, 0.001)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := tb.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTokenBucketRefills(t *testing.T) {
	tb := NewTokenBucket(1, 1000)
	require.True(t, tb.Allow())
	require.NoError(t, tb.Wait(context.Background()))
}

func TestSlidingWindow(t *testing.T) {
	sw := NewSlidingWindow(2, 50*time.Millisecond)
	assert.True(t, sw.Allow())
	assert.True(t, sw.Allow())
	assert.False(t, sw.Allow())
	assert.Equal(t, 0, sw.Remaining())

	require.NoError(t, sw.Wait(context.Background()))
}

func TestManagerFallsBackToGeneral(t *testing.T) {
	m := NewUniformManager(1, 0)
	assert.True(t, m.Allow("unknown"))
	assert.False(t, m.Allow("another-unknown"), "unknown classes share one limiter")
	assert.True(t, m.Allow(ClassOrder))

	m.Set(ClassOrder, NewTokenBucket(3, 0))
	assert.Equal(t, 3, m.Remaining(ClassOrder))
}
