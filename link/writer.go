package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// busyPoll is how often TryWrite rechecks a busy line.
const busyPoll = 10 * time.Millisecond

// Write transmits one frame. It fails fast instead of waiting: ErrBusy while
// a read or write holds the line, ErrFaulted on a faulted link, ErrNotOpen
// before Open and ErrWriteBlocked after BlockWrite; none of these touch the
// channel. A successful or failed transmit leaves Writing set for the
// configured cooldown.
func (l *Link) Write(ctx context.Context, f Frame) error {
	l.mu.Lock()
	closed, blocked, tr := l.closed, l.blocked, l.tr
	l.mu.Unlock()

	if closed {
		return ErrClosed
	}
	st := l.st.load()
	switch {
	case st.Has(Fault):
		return ErrFaulted
	case blocked:
		return ErrWriteBlocked
	case !st.Has(Open) || tr == nil:
		return ErrNotOpen
	}

	release, err := l.st.acquire(Writing)
	if err != nil {
		return err
	}
	defer l.startCooldown(release)

	wctx, cancel := context.WithTimeout(ctx, l.cfg.WriteTimeout)
	defer cancel()

	data := f.data
	n, err := tr.WriteContext(wctx, data)
	switch {
	case err == nil && n < len(data):
		return fmt.Errorf("wrote %d of %d bytes: %w", n, len(data), io.ErrShortWrite)
	case err == nil:
		l.log.Debug().Stringer("frame", f).Msg("frame sent")
		return nil
	case errors.Is(err, context.Canceled):
		return err
	case isClosed(err):
		l.faultWith(err)
		return fmt.Errorf("%w: %v", ErrTransportClosed, err)
	case ctx.Err() != nil:
		// the caller's deadline, not WriteTimeout
		return ctx.Err()
	case isTimeout(err):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	default:
		return err
	}
}

// startCooldown keeps Writing set for WriteCooldown, then calls release.
// The link owns a single timer which is re-armed for every write.
func (l *Link) startCooldown(release func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.blocked {
		// cooldown suspended; Writing stays set
		return
	}
	if l.closed || l.cfg.WriteCooldown <= 0 {
		release()
		return
	}

	l.pendingRelease = release
	if l.cooldown == nil {
		l.cooldown = time.AfterFunc(l.cfg.WriteCooldown, l.endCooldown)
		return
	}
	l.cooldown.Reset(l.cfg.WriteCooldown)
}

func (l *Link) endCooldown() {
	l.mu.Lock()
	release := l.pendingRelease
	l.pendingRelease = nil
	l.mu.Unlock()

	if release != nil {
		release()
		l.log.Trace().Msg("write cooldown over")
	}
}

// BlockWrite refuses every later write and suspends the cooldown timer. It
// leaves the status flags alone and cannot be undone; replace the link to
// write again.
func (l *Link) BlockWrite() {
	l.mu.Lock()
	l.blocked = true
	if l.cooldown != nil {
		l.cooldown.Stop()
	}
	l.mu.Unlock()

	l.log.Warn().Msg("writes blocked")
}

// TryWrite waits for the line to free up, bounded by ctx and WriteWait, and
// writes f. It reports whether the frame went out. Transmit timeouts draw on
// the retry budget; with AutoFault set, exhausting it faults the link. A line
// that stays busy past WriteWait is reported as a failed attempt only. A
// closed transport faults the link at once.
func (l *Link) TryWrite(ctx context.Context, f Frame) bool {
	wait := ctx
	if l.cfg.WriteWait > 0 {
		var cancel context.CancelFunc
		wait, cancel = context.WithTimeout(ctx, l.cfg.WriteWait)
		defer cancel()
	}

	for {
		err := l.Write(ctx, f)
		if !errors.Is(err, ErrBusy) {
			return l.settleWrite(err)
		}
		if !l.sleep(wait, busyPoll) {
			if ctx.Err() != nil {
				return l.settleWrite(ctx.Err())
			}
			if wait.Err() != nil {
				return l.settleWrite(fmt.Errorf("%w: line held for %s", ErrBusy, l.cfg.WriteWait))
			}
			return l.settleWrite(ErrClosed)
		}
	}
}

// TryWriteAsync runs TryWrite in the background. The channel receives the
// outcome once and is then closed.
func (l *Link) TryWriteAsync(ctx context.Context, f Frame) <-chan bool {
	out := make(chan bool, 1)
	go func() {
		defer close(out)
		out <- l.TryWrite(ctx, f)
	}()
	return out
}

func (l *Link) settleWrite(err error) bool {
	switch {
	case err == nil:
		l.budget.Store(DefaultRetryBudget)
		writesTotal.WithLabelValues("ok").Inc()
		return true

	case errors.Is(err, ErrBusy):
		writesTotal.WithLabelValues("busy").Inc()
		l.log.Warn().Err(err).Stringer("status", l.st.load()).Msg("line busy, write skipped")

	case errors.Is(err, ErrTimeout):
		writesTotal.WithLabelValues("timeout").Inc()
		left := l.budget.Load()
		if l.cfg.AutoFault {
			left = l.budget.Add(-1)
			if left < 0 {
				l.faultWith(err)
				return false
			}
		}
		l.log.Warn().Err(err).Int32("budget", left).Msg("write timed out")

	case errors.Is(err, ErrTransportClosed):
		writesTotal.WithLabelValues("closed").Inc()
		l.faultWith(err)

	case errors.Is(err, ErrFaulted):
		writesTotal.WithLabelValues("faulted").Inc()
		l.log.Error().Msg("write on faulted link")

	case errors.Is(err, ErrNotOpen), errors.Is(err, ErrWriteBlocked), errors.Is(err, ErrClosed):
		writesTotal.WithLabelValues("refused").Inc()
		l.log.Warn().Err(err).Msg("write refused")

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writesTotal.WithLabelValues("cancelled").Inc()
		l.log.Debug().Msg("write cancelled")

	default:
		writesTotal.WithLabelValues("error").Inc()
		l.log.Error().Err(err).Msg("write failed")
	}
	return false
}
