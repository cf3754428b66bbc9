package link

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	serial "github.com/allbin/labserial"
	"github.com/stretchr/testify/require"
)

// fakeInstrument is an in-memory Transport. Replies produced by respond are
// queued as unread input once the request has been written.
type fakeInstrument struct {
	mu       sync.Mutex
	in       []byte
	writes   [][]byte
	respond  func(n int, req []byte) []byte
	writeErr []error // consumed one per write, nil entries succeed
	hungUp   bool
	closed   bool

	stall atomic.Bool // writes block until their context ends

	reading atomic.Int32
	writing atomic.Int32
	overlap atomic.Bool
}

var _ Transport = (*fakeInstrument)(nil)

func (f *fakeInstrument) feed(s string) {
	f.mu.Lock()
	f.in = append(f.in, s...)
	f.mu.Unlock()
}

func (f *fakeInstrument) hangUp() {
	f.mu.Lock()
	f.hungUp = true
	f.mu.Unlock()
}

func (f *fakeInstrument) written() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.writes...)
}

func (f *fakeInstrument) Read(buf []byte) (int, error) {
	if f.reading.Add(1); f.writing.Load() > 0 {
		f.overlap.Store(true)
	}
	defer f.reading.Add(-1)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hungUp || f.closed {
		return 0, serial.ErrPortClosed
	}
	if len(f.in) == 0 {
		return 0, serial.ErrReadTimeout
	}
	n := copy(buf, f.in)
	f.in = f.in[n:]
	return n, nil
}

func (f *fakeInstrument) WriteContext(ctx context.Context, data []byte) (int, error) {
	if f.writing.Add(1); f.reading.Load() > 0 {
		f.overlap.Store(true)
	}
	defer f.writing.Add(-1)

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if f.stall.Load() {
		<-ctx.Done()
		return 0, ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hungUp || f.closed {
		return 0, serial.ErrPortClosed
	}
	n := len(f.writes)
	f.writes = append(f.writes, append([]byte(nil), data...))
	if len(f.writeErr) > 0 {
		err := f.writeErr[0]
		f.writeErr = f.writeErr[1:]
		if err != nil {
			return 0, err
		}
	}
	if f.respond != nil {
		f.in = append(f.in, f.respond(n, data)...)
	}
	return len(data), nil
}

func (f *fakeInstrument) Buffered() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hungUp || f.closed {
		return 0, serial.ErrPortClosed
	}
	return len(f.in), nil
}

func (f *fakeInstrument) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return serial.ErrPortClosed
	}
	f.closed = true
	return nil
}

func (f *fakeInstrument) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fastOptions shrink every delay so tests run in milliseconds.
func fastOptions() []Option {
	return []Option{
		WithSettleDelay(0),
		WithWriteCooldown(20 * time.Millisecond),
		WithPollInterval(time.Millisecond),
		WithDrainYield(time.Millisecond),
		WithRetryDelay(5 * time.Millisecond),
		WithResponseTimeout(300 * time.Millisecond),
		WithWriteWait(time.Second),
	}
}

func newUnopenedLink(t *testing.T, inst *fakeInstrument, opts ...Option) *Link {
	t.Helper()
	l, err := New("fake", func() (Transport, error) { return inst, nil }, append(fastOptions(), opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func newOpenLink(t *testing.T, inst *fakeInstrument, opts ...Option) *Link {
	t.Helper()
	l := newUnopenedLink(t, inst, opts...)
	require.True(t, l.Open())
	return l
}

// replies answers the n-th request with answers[n], then stays silent.
func replies(answers ...string) func(int, []byte) []byte {
	return func(n int, _ []byte) []byte {
		if n < len(answers) {
			return []byte(answers[n])
		}
		return nil
	}
}

func recv(t *testing.T, ch <-chan Frame) Frame {
	t.Helper()
	select {
	case f, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return f
	case <-time.After(time.Second):
		t.Fatal("no frame received")
		return Frame{}
	}
}
