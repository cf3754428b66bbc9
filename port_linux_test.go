//go:build linux

package serial

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"
)

func TestGetBaudRate(t *testing.T) {
	tests := []struct {
		input    int
		hasError bool
	}{
		{115200, false},
		{9600, false},
		{57600, false},
		{123456, true}, // Invalid baud rate
	}

	for _, test := range tests {
		result, err := getBaudRate(test.input)
		if test.hasError {
			if err != ErrInvalidBaudRate {
				t.Errorf("Expected ErrInvalidBaudRate for %d, got %v", test.input, err)
			}
		} else {
			if err != nil {
				t.Errorf("Unexpected error for baud rate %d: %v", test.input, err)
			}
			if result == 0 {
				t.Errorf("Got zero result for valid baud rate %d", test.input)
			}
		}
	}

	for rate := range supportedBaudRates {
		if _, err := getBaudRate(rate); err != nil {
			t.Errorf("supported rate %d has no termios constant", rate)
		}
	}
}

func TestOpenNonExistentDevice(t *testing.T) {
	_, err := Open("/dev/nonexistent")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Expected ErrDeviceNotFound, got %v", err)
	}
}

// openPTY opens the slave side of a fresh pty pair as a Port.
func openPTY(t *testing.T, opts ...Option) (Port, *os.File) {
	t.Helper()
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	p, err := Open(slave.Name(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p, master
}

func TestPortOverPTY(t *testing.T) {
	p, master := openPTY(t)

	n, err := p.Buffered()
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = master.Write([]byte("#LAB?\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		n, err := p.Buffered()
		return err == nil && n == 6
	}, time.Second, 5*time.Millisecond)

	buf := make([]byte, 6)
	n, err = p.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "#LAB?\n", string(buf[:n]))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = p.WriteContext(ctx, []byte("AngstremLabController\n"))
	require.NoError(t, err)

	reply := make([]byte, 64)
	n, err = master.Read(reply)
	require.NoError(t, err)
	require.Equal(t, "AngstremLabController\n", string(reply[:n]))
}

func TestPortReadTimeout(t *testing.T) {
	p, _ := openPTY(t, WithReadTimeout(100*time.Millisecond))

	start := time.Now()
	_, err := p.Read(make([]byte, 8))
	require.ErrorIs(t, err, ErrReadTimeout)
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestPortHangUp(t *testing.T) {
	p, master := openPTY(t)
	require.NoError(t, master.Close())

	_, err := p.Read(make([]byte, 8))
	require.ErrorIs(t, err, ErrPortClosed)
}

func TestPortClose(t *testing.T) {
	p, _ := openPTY(t)

	require.NoError(t, p.Close())
	require.ErrorIs(t, p.Close(), ErrPortClosed)

	_, err := p.Read(make([]byte, 8))
	require.ErrorIs(t, err, ErrPortClosed)
	_, err = p.Write([]byte("x"))
	require.ErrorIs(t, err, ErrPortClosed)
	_, err = p.Buffered()
	require.ErrorIs(t, err, ErrPortClosed)
}
