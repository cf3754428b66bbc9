package link

import (
	"context"
	"errors"
	"time"
)

// watch polls the channel for unread bytes and wakes the reader. It never
// reads itself, so a slow drain cannot pile up concurrent readers.
func (l *Link) watch() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
		}

		st := l.st.load()
		if !st.Has(Open) || st.Has(Fault) || st.Has(Reading) || st.Has(Writing) {
			continue
		}
		tr := l.transport()
		if tr == nil {
			continue
		}
		n, err := tr.Buffered()
		if err != nil {
			l.readFailed(err)
			continue
		}
		if n > 0 {
			select {
			case l.notify <- struct{}{}:
			default:
			}
		}
	}
}

// readLoop is the only goroutine that reads from the channel.
func (l *Link) readLoop() {
	defer l.wg.Done()

	for {
		select {
		case <-l.done:
			return
		case <-l.notify:
			l.drain()
		}
	}
}

// drain reads until no bytes remain, yielding between iterations.
func (l *Link) drain() {
	for l.readOnce() {
		if !l.sleep(context.Background(), l.cfg.DrainYield) {
			return
		}
	}
}

// readOnce reads whatever is buffered under the Reading flag and publishes
// the resulting frames. It reports whether another pass is worthwhile.
func (l *Link) readOnce() bool {
	st := l.st.load()
	if !st.Has(Open) || st.Has(Fault) {
		return false
	}
	tr := l.transport()
	if tr == nil {
		return false
	}

	release, err := l.st.acquire(Reading)
	if err != nil {
		if errors.Is(err, ErrBusy) {
			l.log.Trace().Msg("line busy, read deferred")
		}
		return false
	}
	defer release()

	n, err := tr.Buffered()
	if err != nil {
		l.readFailed(err)
		return false
	}
	if n == 0 {
		return false
	}

	buf := make([]byte, n)
	m, err := tr.Read(buf)
	if m > 0 {
		l.consume(buf[:m])
	}
	if err != nil {
		l.readFailed(err)
		return false
	}
	return m > 0
}

func (l *Link) consume(chunk []byte) {
	frames, overflow := l.framer.feed(chunk)
	if overflow {
		l.log.Warn().
			Int("max", l.cfg.MaxLineLength).
			Msg("line exceeded maximum length, flushed partial line")
	}
	for _, f := range frames {
		l.log.Debug().Stringer("frame", f).Msg("frame received")
		l.publish(f)
	}
}

func (l *Link) readFailed(err error) {
	switch {
	case isClosed(err):
		l.faultWith(err)
	case isTimeout(err):
		l.log.Warn().Err(err).Msg("read timed out")
	default:
		l.log.Error().Err(err).Msg("read failed")
	}
}
