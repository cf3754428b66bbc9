package cmd

import (
	"errors"
	"testing"
	"time"

	serial "github.com/allbin/labserial"
	"github.com/allbin/labserial/link"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSerialConfig(t *testing.T) {
	v := testViper()
	v.Set("baud", 9600)
	v.Set("data-bits", 7)
	v.Set("stop-bits", 2)
	v.Set("parity", "Even")
	v.Set("flow-control", "rtscts")
	v.Set("sync-writes", true)

	opts, cfg, err := serialConfig(v)
	require.NoError(t, err)
	require.NotEmpty(t, opts)
	require.Equal(t, "9600 7E2", cfg.String())
	require.Equal(t, serial.FlowControlRTSCTS, cfg.FlowControl)
	require.Equal(t, serial.WriteModeSynced, cfg.WriteMode)
}

func TestSerialConfigInvalid(t *testing.T) {
	tests := map[string]struct {
		key   string
		value any
	}{
		"parity":       {"parity", "mark"},
		"flow control": {"flow-control", "xonxoff"},
		"baud":         {"baud", 12345},
		"read timeout": {"read-timeout", 150 * time.Millisecond},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			v := testViper()
			v.Set(tt.key, tt.value)
			_, _, err := serialConfig(v)
			require.Error(t, err)
		})
	}
}

func TestLinkConfig(t *testing.T) {
	v := testViper()
	opts, err := linkConfig(v, 9600, zerolog.Nop())
	require.NoError(t, err)

	cfg := link.DefaultConfig()
	for _, opt := range opts {
		require.NoError(t, opt(&cfg))
	}
	require.Equal(t, link.FramingLine, cfg.Framing)
	require.Equal(t, "\n", cfg.Delimiter)
	require.Equal(t, 150*time.Millisecond, cfg.WriteCooldown)
	require.Equal(t, 2*time.Second, cfg.ResponseTimeout)

	v.Set("write-cooldown", 40*time.Millisecond)
	v.Set("framing", "BLOCK")
	opts, err = linkConfig(v, 9600, zerolog.Nop())
	require.NoError(t, err)
	cfg = link.DefaultConfig()
	for _, opt := range opts {
		require.NoError(t, opt(&cfg))
	}
	require.Equal(t, 40*time.Millisecond, cfg.WriteCooldown)
	require.Equal(t, link.FramingBlock, cfg.Framing)
}

func TestLinkConfigInvalid(t *testing.T) {
	v := testViper()
	v.Set("framing", "packet")
	_, err := linkConfig(v, 9600, zerolog.Nop())
	require.True(t, errors.Is(err, link.ErrInvalidConfig))

	v = testViper()
	v.Set("delimiter", "")
	_, err = linkConfig(v, 9600, zerolog.Nop())
	require.ErrorIs(t, err, link.ErrInvalidConfig)
}

func TestUnescape(t *testing.T) {
	tests := map[string]string{
		`\n`:     "\n",
		`\r\n`:   "\r\n",
		`#LAB?`:  "#LAB?",
		"\r\n":   "\r\n",
		`a"b\t`:  "a\"b\t",
		`bad\q`:  `bad\q`,
		`\x02OK`: "\x02OK",
	}
	for in, want := range tests {
		require.Equal(t, want, unescape(in), in)
	}
}

func TestProbeFrames(t *testing.T) {
	v := testViper()
	v.Set("delimiter", `\r\n`)

	probe, expect, attempts := probeFrames(v)
	require.Equal(t, link.Text("#LAB?\r\n"), probe)
	require.Equal(t, link.Text("AngstremLabController"), expect)
	require.Equal(t, 3, attempts)
}
