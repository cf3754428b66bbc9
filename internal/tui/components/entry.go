package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/allbin/labserial/internal/tui/styles"
	"github.com/allbin/labserial/link"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// Direction tells where a console entry came from.
type Direction int

const (
	DirRX Direction = iota
	DirTX
	DirEvent
)

// TxState tracks an outbound frame through TryWrite.
type TxState int

const (
	TxPending TxState = iota
	TxSent
	TxFailed
)

// EntryMsg is one line of console history: a received frame, a sent frame
// or a link event such as a detect result.
type EntryMsg struct {
	ID    int
	Time  time.Time
	Dir   Direction
	Frame link.Frame
	Tx    TxState
	Note  string
}

// TxResultMsg reports the outcome of an earlier TX entry.
type TxResultMsg struct {
	ID int
	OK bool
}

type DisplayMode struct {
	ShowHex   bool
	ShowASCII bool
}

// Formatter renders entries for the terminal view.
type Formatter struct {
	mode DisplayMode
}

func NewFormatter(showHex, showASCII bool) *Formatter {
	return &Formatter{mode: DisplayMode{ShowHex: showHex, ShowASCII: showASCII}}
}

func (f *Formatter) DisplayMode() DisplayMode {
	return f.mode
}

func (f *Formatter) ToggleHex() {
	f.mode.ShowHex = !f.mode.ShowHex
}

func (f *Formatter) ToggleASCII() {
	f.mode.ShowASCII = !f.mode.ShowASCII
}

func (f *Formatter) indicator(e EntryMsg) string {
	switch e.Dir {
	case DirTX:
		color, text := styles.Peach, "TX"
		switch e.Tx {
		case TxPending:
			color, text = styles.Yellow, "TX ○"
		case TxSent:
			color, text = styles.Green, "TX ✓"
		case TxFailed:
			color, text = styles.Red, "TX ✗"
		}
		return lipgloss.NewStyle().Foreground(color).Bold(true).Render("↗ " + text)
	case DirEvent:
		return lipgloss.NewStyle().Foreground(styles.Mauve).Bold(true).Render("● LINK")
	default:
		return lipgloss.NewStyle().Foreground(styles.Sky).Bold(true).Render("↙ RX")
	}
}

// Format renders a single entry.
func (f *Formatter) Format(e EntryMsg) string {
	ts := lipgloss.NewStyle().
		Foreground(styles.Subtext0).
		Render(fmt.Sprintf("[%s]", e.Time.Format("15:04:05.000")))

	if e.Dir == DirEvent {
		return fmt.Sprintf("%s %s: %s", ts, f.indicator(e), e.Note)
	}

	data := e.Frame.Bytes()
	var parts []string
	if f.mode.ShowHex {
		parts = append(parts, fmt.Sprintf("HEX: % X", data))
	}
	if f.mode.ShowASCII {
		parts = append(parts, "ASCII: "+printable(data))
	}
	if !f.mode.ShowHex && !f.mode.ShowASCII {
		parts = append(parts, "BYTES: "+humanize.Bytes(uint64(len(data))))
	}
	if e.Note != "" {
		parts = append(parts, e.Note)
	}

	return fmt.Sprintf("%s %s: %s", ts, f.indicator(e), strings.Join(parts, "  "))
}

func (f *Formatter) FormatAll(entries []EntryMsg) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = f.Format(e)
	}
	return out
}

// printable replaces bytes outside printable ASCII with dots so frames
// cannot inject terminal control sequences.
func printable(data []byte) string {
	var b strings.Builder
	for _, c := range data {
		if c >= 32 && c <= 126 {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}
