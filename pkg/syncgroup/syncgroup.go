// Package syncgroup wraps sync.WaitGroup so goroutines are added and
// released in one place.
package syncgroup

import "sync"

type SyncGroup struct {
	wg  sync.WaitGroup
	mu  sync.Mutex
	fns []func()
}

func NewSyncGroup() *SyncGroup {
	return &SyncGroup{}
}

// Add queues fn for the next Run.
func (g *SyncGroup) Add(fn func()) {
	if fn == nil {
		return
	}
	g.mu.Lock()
	g.fns = append(g.fns, fn)
	g.mu.Unlock()
}

// Run starts every queued function and clears the queue.
func (g *SyncGroup) Run() {
	g.mu.Lock()
	fns := g.fns
	g.fns = nil
	g.mu.Unlock()
	for _, fn := range fns {
		g.wg.Add(1)
		go func(fn func()) {
			defer g.wg.Done()
			fn()
		}(fn)
	}
}

func (g *SyncGroup) Wait() {
	g.wg.Wait()
}
