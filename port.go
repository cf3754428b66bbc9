package serial

import "context"

// Port represents a serial port connection interface
type Port interface {
	// Name returns the device path the port was opened with.
	Name() string
	Close() error
	Read(buf []byte) (int, error)
	Write(data []byte) (int, error)
	WriteContext(ctx context.Context, data []byte) (int, error)
	ReadContext(ctx context.Context, buf []byte) (int, error)

	// Buffered returns the number of received bytes waiting to be read.
	Buffered() (int, error)

	Drain() error
	FlushInput() error
	FlushOutput() error
}

// ioResult carries the outcome of a blocking read or write.
type ioResult struct {
	n   int
	err error
}

// withContext runs op in a goroutine and returns when it completes or ctx
// is done, whichever comes first. An op abandoned on cancellation still
// finishes in the background.
func withContext(ctx context.Context, op func() (int, error)) (int, error) {
	// Check if context is already cancelled
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	resultCh := make(chan ioResult, 1)
	go func() {
		n, err := op()
		resultCh <- ioResult{n: n, err: err}
	}()

	select {
	case result := <-resultCh:
		return result.n, result.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
