package components

import (
	"fmt"
	"strings"

	serial "github.com/allbin/labserial"
	"github.com/allbin/labserial/internal/tui/styles"
	"github.com/allbin/labserial/link"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// LinkInfo is the static part of the status bar.
type LinkInfo struct {
	Line    serial.Config
	Framing link.Framing
}

// Traffic counts what went over the link during the session.
type Traffic struct {
	RXFrames int
	TXFrames int
	RXBytes  int
	TXBytes  int
}

type StatusBar struct {
	portPath string
	info     LinkInfo
	err      error
	width    int
}

func NewStatusBar(portPath string, info LinkInfo) *StatusBar {
	return &StatusBar{portPath: portPath, info: info}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetError(err error) {
	sb.err = err
}

// flags renders the link status as compact markers.
func flags(st link.Status) string {
	var parts []string
	if st.Has(link.Open) {
		parts = append(parts, "OPEN")
	}
	if st.Has(link.Connected) {
		parts = append(parts, "DETECTED")
	}
	if st.Has(link.Writing) {
		parts = append(parts, "TX")
	}
	if st.Has(link.Reading) {
		parts = append(parts, "RX")
	}
	if st.Has(link.Fault) {
		parts = append(parts, "FAULT")
	}
	if len(parts) == 0 {
		return "IDLE"
	}
	return strings.Join(parts, " ")
}

// Render draws the status bar: mode, port, link flags, traffic, line
// settings and the clock.
func (sb *StatusBar) Render(inputMode string, sendingMode SendingMode, st link.Status, traffic Traffic, timestamp string) string {
	width := sb.width
	if width <= 0 {
		width = 80
	}

	modeColor := styles.Blue
	if inputMode == "INSERT" {
		modeColor = styles.Green
	}
	mode := lipgloss.NewStyle().
		Foreground(styles.Base).
		Background(modeColor).
		Bold(true).
		Padding(0, 1).
		Render(inputMode)

	port := lipgloss.NewStyle().
		Foreground(styles.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(sb.portPath)

	state := styles.StatusStyle(st).Padding(0, 1).Render(flags(st))
	if sb.err != nil {
		state = styles.ErrorStyle.Padding(0, 1).Render("✗ " + sb.err.Error())
	}

	divider := lipgloss.NewStyle().Foreground(styles.Surface2).Padding(0, 1).Render("│")

	left := []string{mode, port, state}
	if inputMode == "INSERT" {
		left = append(left, lipgloss.NewStyle().
			Foreground(styles.Peach).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("[%s] Tab to toggle", sendingMode)))
	}
	left = append(left, divider)
	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, left...)

	counters := lipgloss.NewStyle().Foreground(styles.Teal).Padding(0, 1).Render(
		fmt.Sprintf("↙ %d/%s ↗ %d/%s",
			traffic.RXFrames, humanize.Bytes(uint64(traffic.RXBytes)),
			traffic.TXFrames, humanize.Bytes(uint64(traffic.TXBytes))))
	line := lipgloss.NewStyle().Foreground(styles.Subtext0).Padding(0, 1).Render(
		fmt.Sprintf("⚡ %s %s %s", sb.info.Line, sb.info.Line.FlowControl, sb.info.Framing))
	clock := lipgloss.NewStyle().Foreground(styles.Subtext1).Padding(0, 1).Render(timestamp)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, counters, divider, line, divider, clock)

	spacerWidth := width - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return lipgloss.NewStyle().
		Foreground(styles.Text).
		Background(styles.Surface0).
		Width(width).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
