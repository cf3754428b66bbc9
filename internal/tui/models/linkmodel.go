package models

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/allbin/labserial/internal/tui/components"
	"github.com/allbin/labserial/link"
	tea "github.com/charmbracelet/bubbletea"
)

// InputMode represents the current input mode
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeInsert
)

func (m InputMode) String() string {
	switch m {
	case InputModeInsert:
		return "INSERT"
	default:
		return "NORMAL"
	}
}

// LinkOpenedMsg reports the outcome of opening the link in the background.
type LinkOpenedMsg struct {
	OK  bool
	Err error
}

// FrameMsg carries one inbound frame from a subscription.
type FrameMsg struct {
	Time  time.Time
	Frame link.Frame
}

// StreamClosedMsg is sent once the frame subscription ends.
type StreamClosedMsg struct{}

// DetectResultMsg reports a finished detection run.
type DetectResultMsg struct {
	OK       bool
	Duration time.Duration
}

// LinkModel holds the state shared by TUI commands driving a link.
type LinkModel struct {
	link   *link.Link
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	entries   []components.EntryMsg
	nextID    int
	traffic   components.Traffic
	inputMode InputMode
	ready     bool
	err       error
}

func NewLinkModel(l *link.Link) *LinkModel {
	ctx, cancel := context.WithCancel(context.Background())
	return &LinkModel{
		link:   l,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (m *LinkModel) Link() *link.Link {
	return m.link
}

func (m *LinkModel) Context() context.Context {
	return m.ctx
}

// Cancel stops every command started with the model's context.
func (m *LinkModel) Cancel() {
	m.cancel()
}

func (m *LinkModel) IsReady() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

func (m *LinkModel) SetReady(ready bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = ready
}

func (m *LinkModel) InputMode() InputMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inputMode
}

func (m *LinkModel) SetInputMode(mode InputMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputMode = mode
}

func (m *LinkModel) IsInInsertMode() bool {
	return m.InputMode() == InputModeInsert
}

func (m *LinkModel) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

func (m *LinkModel) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// AddEntry stores e, assigning it the next ID, and updates the traffic
// counters. The stored entry is returned.
func (m *LinkModel) AddEntry(e components.EntryMsg) components.EntryMsg {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	e.ID = m.nextID
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	switch e.Dir {
	case components.DirRX:
		m.traffic.RXFrames++
		m.traffic.RXBytes += e.Frame.Len()
	case components.DirTX:
		m.traffic.TXFrames++
		m.traffic.TXBytes += e.Frame.Len()
	}
	m.entries = append(m.entries, e)
	return e
}

// ResolveTx marks the TX entry id as sent or failed. It reports whether
// the entry was found.
func (m *LinkModel) ResolveTx(id int, ok bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.entries {
		if m.entries[i].ID != id || m.entries[i].Dir != components.DirTX {
			continue
		}
		if ok {
			m.entries[i].Tx = components.TxSent
		} else {
			m.entries[i].Tx = components.TxFailed
		}
		return true
	}
	return false
}

// Entries returns a copy of the console history.
func (m *LinkModel) Entries() []components.EntryMsg {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]components.EntryMsg, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m *LinkModel) Traffic() components.Traffic {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.traffic
}

// ClearEntries drops the history but keeps the traffic counters.
func (m *LinkModel) ClearEntries() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
}

// ErrOpenFailed is reported when the channel could not be opened; the
// link log carries the cause.
var ErrOpenFailed = errors.New("unable to open port")

func errOpen(l *link.Link) error {
	if l.Status().Has(link.Fault) {
		return link.ErrFaulted
	}
	return ErrOpenFailed
}

// OpenCmd opens the link off the UI goroutine.
func OpenCmd(l *link.Link) tea.Cmd {
	return func() tea.Msg {
		if !l.Open() {
			return LinkOpenedMsg{OK: false, Err: errOpen(l)}
		}
		return LinkOpenedMsg{OK: true}
	}
}

// WaitForFrame returns a command delivering the next frame from frames.
// Re-issue it after every FrameMsg to keep the stream flowing.
func WaitForFrame(frames <-chan link.Frame) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-frames
		if !ok {
			return StreamClosedMsg{}
		}
		return FrameMsg{Time: time.Now(), Frame: f}
	}
}

// SendCmd transmits f with TryWrite and reports the result for entry id.
func SendCmd(ctx context.Context, l *link.Link, id int, f link.Frame) tea.Cmd {
	return func() tea.Msg {
		return components.TxResultMsg{ID: id, OK: l.TryWrite(ctx, f)}
	}
}

// DetectCmd runs a detection exchange in the background.
func DetectCmd(ctx context.Context, l *link.Link, probe, expect link.Frame, attempts int) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		ok := l.Detect(ctx, probe, expect, attempts)
		return DetectResultMsg{OK: ok, Duration: time.Since(start)}
	}
}
