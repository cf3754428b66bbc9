package link

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	serial "github.com/allbin/labserial"
	"github.com/rs/zerolog"
)

// Transport is the byte channel a Link drives. serial.Port satisfies it.
type Transport interface {
	Read(buf []byte) (int, error)
	WriteContext(ctx context.Context, data []byte) (int, error)
	// Buffered returns the number of bytes that can be read without blocking.
	Buffered() (int, error)
	Close() error
}

// Dialer opens the physical channel. It is called by Link.Open.
type Dialer func() (Transport, error)

// SerialDialer returns a Dialer that opens device with the serial package.
func SerialDialer(device string, opts ...serial.Option) Dialer {
	return func() (Transport, error) {
		return serial.Open(device, opts...)
	}
}

// Link is a half-duplex connection to one instrument. Reads and writes are
// mutually exclusive, writes are followed by a cooldown, and inbound bytes
// are cut into frames that go to the pending response waiter and to
// subscribers.
//
// All methods are safe for concurrent use.
type Link struct {
	name string
	cfg  Config
	log  zerolog.Logger
	dial Dialer

	st     state
	budget atomic.Int32

	openMu sync.Mutex // serializes Open

	mu             sync.Mutex // guards the fields below
	tr             Transport
	closed         bool
	blocked        bool
	cooldown       *time.Timer
	pendingRelease func()

	framer  *framer
	waiters responseWaiter
	subs    subscribers

	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a link named name (used in logs) that opens its channel with
// dial. The link starts Idle; call Open before writing.
func New(name string, dial Dialer, opts ...Option) (*Link, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	l := &Link{
		name:   name,
		cfg:    cfg,
		log:    cfg.Logger.With().Str("port", name).Logger(),
		dial:   dial,
		framer: newFramer(cfg),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	l.budget.Store(DefaultRetryBudget)
	l.subs.log = l.log

	l.log.Info().
		Str("framing", cfg.Framing.String()).
		Dur("cooldown", cfg.WriteCooldown).
		Bool("auto_fault", cfg.AutoFault).
		Msg("link created")
	return l, nil
}

// NewSerial creates a link to a serial device.
func NewSerial(device string, serialOpts []serial.Option, opts ...Option) (*Link, error) {
	return New(device, SerialDialer(device, serialOpts...), opts...)
}

// Name returns the name the link was created with.
func (l *Link) Name() string {
	return l.name
}

// Status returns a snapshot of the link flags.
func (l *Link) Status() Status {
	return l.st.load()
}

// Config returns the settings the link was created with.
func (l *Link) Config() Config {
	return l.cfg
}

// Open opens the channel. It is a no-op reporting true on an open link and
// reports false for a faulted or closed link or when the channel cannot
// be opened.
func (l *Link) Open() bool {
	l.openMu.Lock()
	defer l.openMu.Unlock()

	if l.isClosed() {
		l.log.Error().Msg("open on closed link")
		return false
	}
	st := l.st.load()
	if st.Has(Fault) {
		l.log.Error().Msg("link already faulted, close it and create a new one")
		return false
	}
	if st.Has(Open) {
		return true
	}

	tr, err := l.dial()
	if err != nil {
		l.log.Error().Err(err).Msg("open failed")
		return false
	}

	if l.cfg.SettleDelay > 0 {
		select {
		case <-time.After(l.cfg.SettleDelay):
		case <-l.done:
		}
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		tr.Close()
		return false
	}
	l.tr = tr
	l.st.set(Open)
	l.wg.Add(2)
	l.mu.Unlock()

	go l.watch()
	go l.readLoop()

	l.log.Info().Msg("link opened")
	return true
}

// Close stops the background tasks, cancels any pending wait, closes the
// channel and all subscriptions. Later calls are no-ops.
func (l *Link) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		tr := l.tr
		if l.cooldown != nil {
			l.cooldown.Stop()
		}
		l.pendingRelease = nil
		l.mu.Unlock()

		close(l.done)
		l.wg.Wait()

		l.st.clear(Open | Connected | Writing | Reading)
		if tr != nil {
			err = tr.Close()
		}
		l.subs.closeAll()
		l.log.Info().Msg("link closed")
	})
	return err
}

func (l *Link) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *Link) transport() Transport {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tr
}

// Subscribe returns a channel receiving every frame read after the call.
// Delivery never blocks the reader: a subscriber whose buffer is full
// misses the frame. The channel is closed by cancel or by Close.
func (l *Link) Subscribe(buffer int) (<-chan Frame, func()) {
	return l.subs.add(buffer)
}

// faultWith marks the link faulted because of err.
func (l *Link) faultWith(err error) {
	if l.st.fault() {
		faultsTotal.Inc()
		l.log.Error().Err(err).Msg("link faulted, close it and create a new one")
	}
}

// publish hands a frame to the response waiter, then to subscribers.
func (l *Link) publish(f Frame) {
	framesTotal.WithLabelValues(f.Kind().String()).Inc()
	if l.waiters.offer(f) {
		l.log.Debug().Stringer("frame", f).Msg("response delivered")
	}
	l.subs.broadcast(f)
}

// sleep waits d, returning false early if ctx is done or the link closes.
func (l *Link) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	case <-l.done:
		return false
	}
}
