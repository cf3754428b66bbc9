package link

import (
	"context"
	"sync"
	"time"
)

// responseWaiter is the single response slot of a link. A caller claims it
// for the length of a detect or verify exchange; while claimed nobody else
// can claim it, so a pending response is never overwritten.
type responseWaiter struct {
	mu      sync.Mutex
	claimed bool
	pending chan Frame
}

// waiterClaim is exclusive ownership of the slot.
type waiterClaim struct {
	w *responseWaiter
}

func (w *responseWaiter) claim() (*waiterClaim, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.claimed {
		return nil, ErrBusy
	}
	w.claimed = true
	return &waiterClaim{w: w}, nil
}

func (w *responseWaiter) busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.claimed
}

// offer fulfils the armed round with f. Only the first frame after arming
// is taken.
func (w *responseWaiter) offer(f Frame) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		return false
	}
	w.pending <- f
	w.pending = nil
	return true
}

// arm starts a fresh round; the next frame read is delivered to it.
func (c *waiterClaim) arm() <-chan Frame {
	ch := make(chan Frame, 1)
	c.w.mu.Lock()
	c.w.pending = ch
	c.w.mu.Unlock()
	return ch
}

// disarm ends the current round without waiting for a frame.
func (c *waiterClaim) disarm() {
	c.w.mu.Lock()
	c.w.pending = nil
	c.w.mu.Unlock()
}

func (c *waiterClaim) release() {
	c.w.mu.Lock()
	c.w.pending = nil
	c.w.claimed = false
	c.w.mu.Unlock()
}

// await blocks until the round is fulfilled, ctx is done, timeout elapses
// (when positive) or the link closes.
func await(ctx context.Context, round <-chan Frame, timeout time.Duration, closed <-chan struct{}) (Frame, error) {
	var expire <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expire = t.C
	}

	select {
	case f := <-round:
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-expire:
		return Frame{}, ErrTimeout
	case <-closed:
		return Frame{}, ErrClosed
	}
}
