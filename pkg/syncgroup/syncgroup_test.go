package syncgroup

import (
	"sync/atomic"
	"testing"

	"github.com/betbot/degiro/pkg/sigchan"
)

func TestSyncGroupRunsAndWaits(t *testing.T) {
	g := NewSyncGroup()
	var n int32
	for i := 0; i < 5; i++ {
		g.Add(func() { atomic.AddInt32(&n, 1) })
	}
	g.Add(nil)
	g.Run()
	g.Wait()
	if got := atomic.LoadInt32(&n); got != 5 {
		t.Fatalf("ran %d functions, want 5", got)
	}

	// queue is cleared after Run
	g.Run()
	g.Wait()
	if got := atomic.LoadInt32(&n); got != 5 {
		t.Fatalf("ran %d functions after second Run, want 5", got)
	}
}

func TestSigchanDoesNotBlock(t *testing.T) {
	c := sigchan.New(1)
	c.Emit()
	c.Emit()
	select {
	case <-c.C():
	default:
		t.Fatal("expected a signal")
	}
	select {
	case <-c.C():
		t.Fatal("second signal should have been dropped")
	default:
	}
}
