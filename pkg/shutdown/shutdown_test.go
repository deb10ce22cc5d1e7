package shutdown

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShutdownRunsAllHandlers(t *testing.T) {
	m := NewManager()
	var n int32
	boom := errors.New("boom")
	m.OnShutdown("a", func(ctx context.Context) error { atomic.AddInt32(&n, 1); return nil })
	m.OnShutdown("b", func(ctx context.Context) error { atomic.AddInt32(&n, 1); return boom })

	err := m.Shutdown(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 2, atomic.LoadInt32(&n))
}

func TestShutdownTimeout(t *testing.T) {
	m := NewManager()
	release := make(chan struct{})
	defer close(release)
	m.OnShutdown("stuck", func(ctx context.Context) error { <-release; return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Shutdown(ctx), context.DeadlineExceeded)
}

func TestShutdownEmpty(t *testing.T) {
	assert.NoError(t, NewManager().Shutdown(context.Background()))
}
