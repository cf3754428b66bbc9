package styles

import (
	"github.com/allbin/labserial/link"
	"github.com/charmbracelet/lipgloss"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Mauve).
			Background(Surface0).
			Padding(0, 1)

	// Content area styles
	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(Surface1)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Surface2).
			Padding(0, 1)

	InfoStyle    = lipgloss.NewStyle().Foreground(Mauve).Bold(true)
	SuccessStyle = lipgloss.NewStyle().Foreground(Green).Bold(true)
	WarnStyle    = lipgloss.NewStyle().Foreground(Yellow).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(Red).Bold(true)
	MutedStyle   = lipgloss.NewStyle().Foreground(Subtext0)
)

// StatusStyle picks the colour for a link status: red when faulted, green
// once the instrument answered, blue while open and yellow otherwise.
func StatusStyle(st link.Status) lipgloss.Style {
	switch {
	case st.Has(link.Fault):
		return ErrorStyle
	case st.Has(link.Connected):
		return SuccessStyle
	case st.Has(link.Open):
		return lipgloss.NewStyle().Foreground(Blue).Bold(true)
	default:
		return WarnStyle
	}
}
