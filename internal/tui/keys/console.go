package keys

import "github.com/charmbracelet/bubbles/key"

// ConsoleKeys are the bindings of the interactive instrument console
type ConsoleKeys struct {
	FrameViewKeys
	Enter          key.Binding
	ToggleSendMode key.Binding
	Up             key.Binding
	Down           key.Binding
	Detect         key.Binding
	BlockWrite     key.Binding
}

func NewConsoleKeys() ConsoleKeys {
	return ConsoleKeys{
		FrameViewKeys:  NewFrameViewKeys(),
		Enter:          bind("enter", "send frame", "enter"),
		ToggleSendMode: bind("tab", "ascii/hex input", "tab"),
		Up:             bind("↑", "previous command", "up"),
		Down:           bind("↓", "next command", "down"),
		Detect:         bind("d", "probe instrument", "d"),
		BlockWrite:     bind("B", "block writes", "B"),
	}
}

func (k ConsoleKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.InsertMode, k.Detect, k.Enter, k.Quit}
}

func (k ConsoleKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.InsertMode, k.NormalMode, k.Enter, k.ToggleSendMode},
		{k.Up, k.Down, k.ClearLog, k.HexView, k.TextView},
		{k.Detect, k.BlockWrite, k.Help, k.Quit},
	}
}
