package keys

import "github.com/charmbracelet/bubbles/key"

func bind(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

// ModeKeys switch between browsing frames and typing a command
type ModeKeys struct {
	Quit       key.Binding
	Help       key.Binding
	InsertMode key.Binding
	NormalMode key.Binding
}

func NewModeKeys() ModeKeys {
	return ModeKeys{
		Quit:       bind("q", "close link and quit", "q", "Q", "ctrl+c"),
		Help:       bind("?", "more keys", "?"),
		InsertMode: bind("i", "type command", "i", "I"),
		NormalMode: bind("esc", "stop typing", "esc"),
	}
}

// FrameViewKeys change how received and sent frames are shown
type FrameViewKeys struct {
	ModeKeys
	ClearLog key.Binding
	HexView  key.Binding
	TextView key.Binding
}

func NewFrameViewKeys() FrameViewKeys {
	return FrameViewKeys{
		ModeKeys: NewModeKeys(),
		ClearLog: bind("c", "clear frame log", "c"),
		HexView:  bind("h", "frames as hex", "h"),
		TextView: bind("a", "frames as text", "a"),
	}
}
