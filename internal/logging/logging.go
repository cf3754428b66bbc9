// Package logging builds the zerolog logger used by the labserial CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel   = "LABSERIAL_LOG_LEVEL"
	EnvLogNoColor = "LABSERIAL_LOG_NOCOLOR"
)

// Options selects where and how much the CLI logs.
type Options struct {
	Level   string    // trace, debug, info, warn, error or off
	JSON    bool      // JSON lines instead of the console format
	NoColor bool      // plain console output
	File    string    // optional log file, appended to
	Out     io.Writer // console destination, stderr when nil
}

// Configure builds a logger from opts, applies environment overrides and
// installs it as the global zerolog logger. The returned closer releases
// the log file, if any.
func Configure(app string, opts Options) (zerolog.Logger, io.Closer, error) {
	applyEnvOverrides(&opts)

	level, ok := ParseLevel(opts.Level)
	if !ok {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("unknown log level %q", opts.Level)
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	var console io.Writer = out
	if !opts.JSON {
		console = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    opts.NoColor,
		}
	}

	var closer io.Closer = nopCloser{}
	writer := console
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("open log file: %w", err)
		}
		writer = zerolog.MultiLevelWriter(console, f)
		closer = f
	}

	if level < zerolog.GlobalLevel() {
		zerolog.SetGlobalLevel(level)
	}
	logger := zerolog.New(writer).Level(level).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger, closer, nil
}

// ParseLevel maps a level name onto a zerolog level. Empty means info.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return zerolog.InfoLevel, true
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func applyEnvOverrides(opts *Options) {
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		if _, ok := ParseLevel(lvl); ok {
			opts.Level = lvl
		}
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		opts.NoColor = v
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
