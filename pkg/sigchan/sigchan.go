// Package sigchan is a non-blocking, data-less notification channel.
package sigchan

type Chan struct {
	c chan struct{}
}

func New(bufferSize int) *Chan {
	return &Chan{c: make(chan struct{}, bufferSize)}
}

// Emit signals without blocking; the signal is dropped when the buffer is
// full.
func (c *Chan) Emit() {
	select {
	case c.c <- struct{}{}:
	default:
	}
}

func (c *Chan) C() <-chan struct{} {
	return c.c
}
