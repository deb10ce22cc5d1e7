package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCache(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewInMemoryCache[string, int](time.Minute, 0)
	defer c.Close()
	c.now = func() time.Time { return now }

	c.Set("a", 1, 0)
	c.Set("b", 2, 10*time.Second)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(30 * time.Second)
	_, ok = c.Get("b")
	assert.False(t, ok, "b should have expired")
	_, ok = c.Get("a")
	assert.True(t, ok)

	c.sweep()
	assert.Equal(t, 1, c.Size())

	c.Delete("a")
	assert.Equal(t, 0, c.Size())

	c.Set("x", 9, 0)
	c.Clear()
	_, ok = c.Get("x")
	assert.False(t, ok)
}

func TestInMemoryCacheCloseIdempotent(t *testing.T) {
	c := NewInMemoryCache[int, string](time.Second, time.Millisecond)
	c.Close()
	c.Close()
}
