package cmd

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	serial "github.com/allbin/labserial"
	"github.com/allbin/labserial/link"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

// scriptedPort answers each write with the next scripted reply.
type scriptedPort struct {
	mu      sync.Mutex
	in      []byte
	replies []string
	writes  []string
	closed  bool
}

func (p *scriptedPort) feed(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.in = append(p.in, s...)
}

func (p *scriptedPort) written() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.writes...)
}

func (p *scriptedPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, serial.ErrPortClosed
	}
	if len(p.in) == 0 {
		return 0, serial.ErrReadTimeout
	}
	n := copy(buf, p.in)
	p.in = p.in[n:]
	return n, nil
}

func (p *scriptedPort) WriteContext(ctx context.Context, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = append(p.writes, string(data))
	if len(p.replies) > 0 {
		p.in = append(p.in, p.replies[0]...)
		p.replies = p.replies[1:]
	}
	return len(data), nil
}

func (p *scriptedPort) Buffered() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, serial.ErrPortClosed
	}
	return len(p.in), nil
}

func (p *scriptedPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func newScriptedLink(t *testing.T, port *scriptedPort) *link.Link {
	t.Helper()
	l, err := link.New("/dev/ttyFAKE0", func() (link.Transport, error) { return port, nil },
		link.WithSettleDelay(0),
		link.WithWriteCooldown(5*time.Millisecond),
		link.WithPollInterval(time.Millisecond),
		link.WithDrainYield(time.Millisecond),
		link.WithRetryDelay(time.Millisecond),
		link.WithResponseTimeout(200*time.Millisecond),
	)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

// testViper returns settings matching the persistent flag defaults.
func testViper() *viper.Viper {
	v := viper.New()
	for key, value := range map[string]any{
		"baud":             115200,
		"data-bits":        8,
		"stop-bits":        1,
		"parity":           "none",
		"flow-control":     "none",
		"read-timeout":     100 * time.Millisecond,
		"framing":          "line",
		"delimiter":        `\n`,
		"write-timeout":    time.Second,
		"write-wait":       5 * time.Second,
		"response-timeout": 2 * time.Second,
		"retry-delay":      100 * time.Millisecond,
		"settle-delay":     50 * time.Millisecond,
		"detect.probe":     defaultProbe,
		"detect.expect":    defaultExpect,
		"detect.attempts":  defaultAttempts,
	} {
		v.Set(key, value)
	}
	return v
}

func lines(s ...string) string {
	return strings.Join(s, "\n") + "\n"
}
