//go:build !linux

package serial

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bugst "go.bug.st/serial"
)

// pumpTimeout bounds each receive-pump read so Close is noticed promptly.
const pumpTimeout = 100 * time.Millisecond

// port wraps a go.bug.st port. The driver has no input-queue query, so a
// receive pump moves bytes into a userspace buffer that Buffered reports on.
type port struct {
	mu     sync.Mutex
	dev    bugst.Port
	name   string
	config Config
	closed bool

	in      bytes.Buffer
	inErr   error
	ready   chan struct{}
	stopped chan struct{}
}

var _ Port = (*port)(nil)

func toMode(config Config) *bugst.Mode {
	mode := &bugst.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	}
	switch config.Parity {
	case ParityOdd:
		mode.Parity = bugst.OddParity
	case ParityEven:
		mode.Parity = bugst.EvenParity
	}
	if config.StopBits == 2 {
		mode.StopBits = bugst.TwoStopBits
	}
	return mode
}

func openError(device string, err error) error {
	var perr *bugst.PortError
	if errors.As(err, &perr) {
		switch perr.Code() {
		case bugst.PortNotFound:
			return fmt.Errorf("open %s: %w", device, ErrDeviceNotFound)
		case bugst.PermissionDenied:
			return fmt.Errorf("open %s: %w", device, ErrPermissionDenied)
		case bugst.PortBusy:
			return fmt.Errorf("open %s: %w", device, ErrDeviceInUse)
		case bugst.InvalidSpeed:
			return ErrInvalidBaudRate
		}
	}
	return fmt.Errorf("open %s: %v", device, err)
}

func ioError(err error) error {
	var perr *bugst.PortError
	if errors.As(err, &perr) && perr.Code() == bugst.PortClosed {
		return ErrPortClosed
	}
	return err
}

// Open opens a serial port with the given device path and options
func Open(device string, opts ...Option) (Port, error) {
	config, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	dev, err := bugst.Open(device, toMode(config))
	if err != nil {
		return nil, openError(device, err)
	}
	if err := dev.SetReadTimeout(pumpTimeout); err != nil {
		dev.Close()
		return nil, fmt.Errorf("failed to set read timeout: %v", err)
	}

	p := &port{
		dev:     dev,
		name:    device,
		config:  config,
		ready:   make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go p.pump()
	return p, nil
}

// pump copies received bytes into the input buffer until the port fails
// or is closed.
func (p *port) pump() {
	defer close(p.stopped)
	buf := make([]byte, 4096)
	for {
		n, err := p.dev.Read(buf)
		p.mu.Lock()
		if n > 0 {
			p.in.Write(buf[:n])
		}
		if err != nil {
			p.inErr = ioError(err)
		}
		closed := p.closed
		p.mu.Unlock()

		if n > 0 || err != nil {
			select {
			case p.ready <- struct{}{}:
			default:
			}
		}
		if err != nil || closed {
			return
		}
	}
}

func (p *port) Name() string {
	return p.name
}

func (p *port) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPortClosed
	}
	p.closed = true
	p.mu.Unlock()

	err := p.dev.Close()
	<-p.stopped
	return err
}

// Read returns buffered bytes, waiting up to the configured read timeout
// for the first one.
func (p *port) Read(buf []byte) (int, error) {
	deadline := time.NewTimer(p.config.ReadTimeout)
	defer deadline.Stop()

	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return 0, ErrPortClosed
		}
		if p.in.Len() > 0 {
			n, _ := p.in.Read(buf)
			p.mu.Unlock()
			return n, nil
		}
		if p.inErr != nil {
			err := p.inErr
			p.mu.Unlock()
			return 0, err
		}
		p.mu.Unlock()

		if p.config.ReadTimeout <= 0 {
			return 0, ErrReadTimeout
		}
		select {
		case <-p.ready:
		case <-deadline.C:
			return 0, ErrReadTimeout
		}
	}
}

func (p *port) Write(data []byte) (int, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return 0, ErrPortClosed
	}

	n, err := p.dev.Write(data)
	if err != nil {
		return n, ioError(err)
	}
	return n, nil
}

func (p *port) WriteContext(ctx context.Context, data []byte) (int, error) {
	n, err := withContext(ctx, func() (int, error) {
		return p.Write(data)
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return n, ErrWriteTimeout
	}
	return n, err
}

func (p *port) ReadContext(ctx context.Context, buf []byte) (int, error) {
	return withContext(ctx, func() (int, error) {
		return p.Read(buf)
	})
}

func (p *port) Buffered() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrPortClosed
	}
	if p.in.Len() == 0 && p.inErr != nil {
		return 0, p.inErr
	}
	return p.in.Len(), nil
}

func (p *port) Drain() error {
	return p.dev.Drain()
}

func (p *port) FlushInput() error {
	p.mu.Lock()
	p.in.Reset()
	p.mu.Unlock()
	return p.dev.ResetInputBuffer()
}

func (p *port) FlushOutput() error {
	return p.dev.ResetOutputBuffer()
}
