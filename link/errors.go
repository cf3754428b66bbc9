package link

import (
	"context"
	"errors"
	"io"
	"os"

	serial "github.com/allbin/labserial"
)

var (
	// ErrBusy means a read or write already holds the line. Retry later.
	ErrBusy = errors.New("link busy")
	// ErrFaulted means the link is permanently degraded and must be replaced.
	ErrFaulted = errors.New("link faulted")
	// ErrTimeout is a transient transport timeout.
	ErrTimeout = errors.New("link timeout")
	// ErrTransportClosed means the underlying channel went away.
	ErrTransportClosed = errors.New("link transport closed")
	// ErrNotOpen is returned for writes on a link that has not been opened.
	ErrNotOpen = errors.New("link not open")
	// ErrWriteBlocked is returned for writes after BlockWrite.
	ErrWriteBlocked = errors.New("link writes blocked")
	// ErrClosed is returned once the link has been closed.
	ErrClosed = errors.New("link closed")
	// ErrInvalidConfig is returned by options given out-of-range values.
	ErrInvalidConfig = errors.New("invalid link configuration")
)

// isClosed reports whether err means the transport is gone.
func isClosed(err error) bool {
	return errors.Is(err, ErrTransportClosed) ||
		errors.Is(err, serial.ErrPortClosed) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, io.EOF)
}

// isTimeout reports whether err is a transient timeout.
func isTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, serial.ErrWriteTimeout) ||
		errors.Is(err, serial.ErrReadTimeout)
}
