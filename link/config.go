package link

import (
	"time"

	"github.com/rs/zerolog"
)

// Framing selects how inbound bytes are cut into frames.
type Framing int

const (
	// FramingLine emits one Text frame per delimiter-terminated line.
	FramingLine Framing = iota
	// FramingBlock emits one Binary frame per burst of available bytes.
	FramingBlock
)

func (f Framing) String() string {
	switch f {
	case FramingBlock:
		return "block"
	default:
		return "line"
	}
}

// ParseFraming accepts "line" or "block".
func ParseFraming(s string) (Framing, error) {
	switch s {
	case "line", "":
		return FramingLine, nil
	case "block":
		return FramingBlock, nil
	default:
		return FramingLine, ErrInvalidConfig
	}
}

// DefaultRetryBudget is the number of write timeouts tolerated before an
// auto-faulting link gives up.
const DefaultRetryBudget = 3

// Config holds link behaviour settings.
type Config struct {
	Framing       Framing
	Delimiter     string // line terminator in line mode
	MaxLineLength int    // partial line bytes held before a forced frame

	WriteCooldown time.Duration // Writing stays set this long after a write
	WriteTimeout  time.Duration // bound on a single transmit
	WriteWait     time.Duration // how long TryWrite polls for a free line
	AutoFault     bool          // exhausting the retry budget faults the link

	SettleDelay     time.Duration // pause after the channel opens
	ResponseTimeout time.Duration // per-round wait for a reply, 0 waits on ctx only
	RetryDelay      time.Duration // pause between detect rounds
	Attempts        int           // default detect attempts

	PollInterval time.Duration // how often the watcher checks for input
	DrainYield   time.Duration // pause between drain iterations

	Logger zerolog.Logger
}

// Option is a functional option for configuring a link
type Option func(*Config) error

// DefaultConfig returns the settings used for a 115200 baud instrument.
func DefaultConfig() Config {
	return Config{
		Framing:         FramingLine,
		Delimiter:       "\n",
		MaxLineLength:   4096,
		WriteCooldown:   200 * time.Millisecond,
		WriteTimeout:    time.Second,
		WriteWait:       5 * time.Second,
		SettleDelay:     50 * time.Millisecond,
		ResponseTimeout: 2 * time.Second,
		RetryDelay:      100 * time.Millisecond,
		Attempts:        3,
		PollInterval:    10 * time.Millisecond,
		DrainYield:      10 * time.Millisecond,
		Logger:          zerolog.Nop(),
	}
}

// CooldownForBaud suggests a write cooldown for a baud rate, scaled from
// the 150ms observed at 9600 baud and never below 10ms.
func CooldownForBaud(baud int) time.Duration {
	if baud <= 0 {
		return DefaultConfig().WriteCooldown
	}
	d := time.Duration(int64(150*time.Millisecond) * 9600 / int64(baud))
	if d < 10*time.Millisecond {
		d = 10 * time.Millisecond
	}
	return d
}

// WithFraming selects line or block framing
func WithFraming(f Framing) Option {
	return func(c *Config) error {
		if f != FramingLine && f != FramingBlock {
			return ErrInvalidConfig
		}
		c.Framing = f
		return nil
	}
}

// WithDelimiter sets the line terminator used in line mode
func WithDelimiter(delim string) Option {
	return func(c *Config) error {
		if delim == "" {
			return ErrInvalidConfig
		}
		c.Delimiter = delim
		return nil
	}
}

// WithMaxLineLength bounds the partial line buffer
func WithMaxLineLength(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return ErrInvalidConfig
		}
		c.MaxLineLength = n
		return nil
	}
}

// WithWriteCooldown sets the post-write lockout. Zero or negative clears
// Writing as soon as the transmit returns.
func WithWriteCooldown(d time.Duration) Option {
	return func(c *Config) error {
		c.WriteCooldown = d
		return nil
	}
}

// WithWriteTimeout bounds a single transmit
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return ErrInvalidConfig
		}
		c.WriteTimeout = d
		return nil
	}
}

// WithWriteWait bounds how long TryWrite waits for the line to free up
func WithWriteWait(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return ErrInvalidConfig
		}
		c.WriteWait = d
		return nil
	}
}

// WithAutoFault faults the link once write timeouts exhaust the retry budget
func WithAutoFault(enabled bool) Option {
	return func(c *Config) error {
		c.AutoFault = enabled
		return nil
	}
}

// WithSettleDelay sets the pause after opening the channel
func WithSettleDelay(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return ErrInvalidConfig
		}
		c.SettleDelay = d
		return nil
	}
}

// WithResponseTimeout bounds each wait for a reply. The wait is counted from
// the end of the write cooldown, since nothing is read before then. Zero
// waits until the caller's context is done.
func WithResponseTimeout(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return ErrInvalidConfig
		}
		c.ResponseTimeout = d
		return nil
	}
}

// WithRetryDelay sets the pause between detect rounds
func WithRetryDelay(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return ErrInvalidConfig
		}
		c.RetryDelay = d
		return nil
	}
}

// WithAttempts sets the detect attempts used when a caller passes zero
func WithAttempts(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return ErrInvalidConfig
		}
		c.Attempts = n
		return nil
	}
}

// WithPollInterval sets how often the watcher checks for input
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return ErrInvalidConfig
		}
		c.PollInterval = d
		return nil
	}
}

// WithDrainYield sets the pause between consecutive drain iterations
func WithDrainYield(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return ErrInvalidConfig
		}
		c.DrainYield = d
		return nil
	}
}

// WithLogger sets the logger used for link events
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}
