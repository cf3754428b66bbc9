/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"time"

	serial "github.com/allbin/labserial"
	"github.com/allbin/labserial/internal/tui/components"
	"github.com/allbin/labserial/internal/tui/keys"
	"github.com/allbin/labserial/internal/tui/models"
	"github.com/allbin/labserial/internal/tui/styles"
	"github.com/allbin/labserial/link"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// consoleCmd represents the console command
var consoleCmd = &cobra.Command{
	Use:   "console <port>",
	Short: "Interactive console for an instrument",
	Long: `Open an interactive console on a half-duplex instrument link.

The console shows received frames and sent commands with timestamps, and the
link state in the status bar. Features include:
- Command input in ASCII (delimiter appended) or hex
- Command history
- ASCII and hex display modes
- Instrument detection with the configured probe ('d')

Example usage:
  labserial console /dev/ttyUSB0
  labserial console /dev/ttyUSB0 --baud 9600 --delimiter '\r\n'`,
	Args:    cobra.ExactArgs(1),
	PreRunE: bindDetectFlags,
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		l, line, err := newLink(v, args[0])
		if err != nil {
			return err
		}
		defer l.Close()

		probe, expect, attempts := probeFrames(v)
		m := newConsoleModel(l, line, unescape(v.GetString("delimiter")), probe, expect, attempts)
		defer m.Cancel()

		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
		_, err = p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)

	detectFlags(consoleCmd)
}

// tickMsg refreshes the status bar clock and link flags.
type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// consoleModel represents the Bubble Tea model for the console command
type consoleModel struct {
	*models.LinkModel
	frames    <-chan link.Frame
	unsub     func()
	terminal  *components.Terminal
	statusBar *components.StatusBar
	input     *components.Input
	help      help.Model
	keys      keys.ConsoleKeys

	probe, expect link.Frame
	attempts      int
	detecting     bool
}

func newConsoleModel(l *link.Link, line serial.Config, delim string, probe, expect link.Frame, attempts int) *consoleModel {
	frames, unsub := l.Subscribe(64)
	return &consoleModel{
		LinkModel: models.NewLinkModel(l),
		frames:    frames,
		unsub:     unsub,
		terminal:  components.NewTerminal(0, 0), // sized by the first WindowSizeMsg
		statusBar: components.NewStatusBar(l.Name(), components.LinkInfo{Line: line, Framing: l.Config().Framing}),
		input:     components.NewInput(delim),
		help:      help.New(),
		keys:      keys.NewConsoleKeys(),
		probe:     probe,
		expect:    expect,
		attempts:  attempts,
	}
}

func (m *consoleModel) Init() tea.Cmd {
	return tea.Batch(models.OpenCmd(m.Link()), models.WaitForFrame(m.frames), tick())
}

func (m *consoleModel) event(note string) {
	e := m.AddEntry(components.EntryMsg{Dir: components.DirEvent, Note: note})
	if m.IsReady() {
		m.terminal.Add(e)
	}
}

func (m *consoleModel) quit() (tea.Model, tea.Cmd) {
	m.Cancel()
	m.unsub()
	return m, tea.Quit
}

func (m *consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// content border, input box, status bar, help line
		const chrome = 1 + 3 + 1 + 1
		m.terminal.SetSize(msg.Width, msg.Height-chrome)
		m.input.SetWidth(msg.Width)
		m.statusBar.SetWidth(msg.Width)
		m.help.Width = msg.Width
		if !m.IsReady() {
			m.SetReady(true)
			m.terminal.Refresh(m.Entries())
		}

	case tickMsg:
		cmds = append(cmds, tick())

	case models.LinkOpenedMsg:
		if !msg.OK {
			m.SetError(msg.Err)
			m.statusBar.SetError(msg.Err)
			m.event(fmt.Sprintf("could not open %s: %v", m.Link().Name(), msg.Err))
			break
		}
		m.event("port opened")

	case models.FrameMsg:
		e := m.AddEntry(components.EntryMsg{Time: msg.Time, Dir: components.DirRX, Frame: msg.Frame})
		if m.IsReady() {
			m.terminal.Add(e)
		}
		cmds = append(cmds, models.WaitForFrame(m.frames))

	case models.StreamClosedMsg:
		m.event("link closed")

	case components.TxResultMsg:
		if m.ResolveTx(msg.ID, msg.OK) {
			m.terminal.Refresh(m.Entries())
		}
		if !msg.OK && m.Link().Status().Has(link.Fault) {
			m.statusBar.SetError(link.ErrFaulted)
		}

	case models.DetectResultMsg:
		m.detecting = false
		if msg.OK {
			m.event(fmt.Sprintf("instrument detected in %s", msg.Duration.Round(time.Millisecond)))
		} else {
			m.event(fmt.Sprintf("no instrument answered after %d attempt(s)", m.attempts))
		}

	case tea.KeyMsg:
		if m.IsInInsertMode() {
			switch {
			case key.Matches(msg, m.keys.NormalMode):
				m.SetInputMode(models.InputModeNormal)
				m.input.Blur()
				return m, tea.Batch(cmds...)
			case key.Matches(msg, m.keys.Enter):
				return m, tea.Batch(append(cmds, m.send())...)
			case key.Matches(msg, m.keys.Up):
				m.input.NavigateHistoryUp()
				return m, tea.Batch(cmds...)
			case key.Matches(msg, m.keys.Down):
				m.input.NavigateHistoryDown()
				return m, tea.Batch(cmds...)
			case key.Matches(msg, m.keys.ToggleSendMode):
				m.input.ToggleSendingMode()
				return m, tea.Batch(cmds...)
			}
		} else {
			switch {
			case key.Matches(msg, m.keys.Quit):
				return m.quit()
			case key.Matches(msg, m.keys.InsertMode):
				m.SetInputMode(models.InputModeInsert)
				m.input.Focus()
				return m, tea.Batch(cmds...)
			case key.Matches(msg, m.keys.ClearLog):
				m.ClearEntries()
				m.terminal.Clear()
			case key.Matches(msg, m.keys.Help):
				m.help.ShowAll = !m.help.ShowAll
			case key.Matches(msg, m.keys.HexView):
				m.terminal.ToggleHex()
				m.terminal.Refresh(m.Entries())
			case key.Matches(msg, m.keys.TextView):
				m.terminal.ToggleASCII()
				m.terminal.Refresh(m.Entries())
			case key.Matches(msg, m.keys.ToggleSendMode):
				m.input.ToggleSendingMode()
			case key.Matches(msg, m.keys.Detect):
				cmds = append(cmds, m.detect())
			case key.Matches(msg, m.keys.BlockWrite):
				m.Link().BlockWrite()
				m.event("writes blocked")
			}
		}
	}

	if m.IsInInsertMode() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	cmds = append(cmds, m.terminal.Update(msg))

	return m, tea.Batch(cmds...)
}

// send queues the input line as a TX entry and transmits it.
func (m *consoleModel) send() tea.Cmd {
	raw := m.input.Value()
	f, err := m.input.Frame()
	if err != nil {
		m.event(fmt.Sprintf("invalid input: %v", err))
		return nil
	}

	e := m.AddEntry(components.EntryMsg{Dir: components.DirTX, Frame: f, Tx: components.TxPending})
	m.terminal.Add(e)
	m.input.AddToHistory(raw)
	m.input.SetValue("")
	return models.SendCmd(m.Context(), m.Link(), e.ID, f)
}

func (m *consoleModel) detect() tea.Cmd {
	if m.detecting {
		return nil
	}
	m.detecting = true
	m.event(fmt.Sprintf("probing with %s", preview(m.probe)))
	return models.DetectCmd(m.Context(), m.Link(), m.probe, m.expect, m.attempts)
}

func (m *consoleModel) View() string {
	content := "Initializing..."
	if m.IsReady() {
		content = m.terminal.View()
	}

	input := m.input.ViewWithMode(m.IsInInsertMode())
	statusBar := m.statusBar.Render(
		m.InputMode().String(),
		m.input.SendingMode(),
		m.Link().Status(),
		m.Traffic(),
		time.Now().Format("15:04:05"),
	)
	helpView := lipgloss.NewStyle().Foreground(styles.Overlay0).Render(m.help.View(m.keys))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		styles.ContentBorderStyle.Render(content),
		input,
		statusBar,
		helpView,
	)
}
