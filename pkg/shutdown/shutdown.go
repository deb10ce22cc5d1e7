// Package shutdown runs registered cleanup handlers concurrently under a
// deadline.
package shutdown

import (
	"context"
	"errors"
	"sync"

	"github.com/betbot/degiro/pkg/logger"
)

// Handler releases one resource. It should return when ctx is done.
type Handler func(ctx context.Context) error

type Manager struct {
	mu       sync.Mutex
	handlers []namedHandler
}

type namedHandler struct {
	name string
	fn   Handler
}

func NewManager() *Manager {
	return &Manager{}
}

// OnShutdown registers fn under a name used in logs.
func (m *Manager) OnShutdown(name string, fn Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, namedHandler{name: name, fn: fn})
}

// Shutdown runs every handler and waits for them or for ctx. The returned
// error joins handler failures and, on timeout, ctx.Err().
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	handlers := append([]namedHandler(nil), m.handlers...)
	m.mu.Unlock()
	if len(handlers) == 0 {
		return nil
	}
	logger.Infof("shutting down %d components", len(handlers))

	var (
		wg   sync.WaitGroup
		errM sync.Mutex
		errs []error
	)
	for _, h := range handlers {
		wg.Add(1)
		go func(h namedHandler) {
			defer wg.Done()
			if err := h.fn(ctx); err != nil {
				logger.Warnf("shutdown %s: %v", h.name, err)
				errM.Lock()
				errs = append(errs, err)
				errM.Unlock()
			}
		}(h)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warnf("shutdown timed out: %v", ctx.Err())
		errM.Lock()
		errs = append(errs, ctx.Err())
		errM.Unlock()
	}
	errM.Lock()
	defer errM.Unlock()
	return errors.Join(errs...)
}
