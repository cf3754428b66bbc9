package link

import (
	"strings"
	"sync"
	"sync/atomic"
)

// Status is the set of flags describing what a link is doing.
type Status uint32

const (
	Idle      Status = 0x00
	Open      Status = 0x01 // channel opened, instrument not yet confirmed
	Connected Status = 0x02 // instrument answered a detect probe; advisory only
	Writing   Status = 0x04
	Reading   Status = 0x08
	Fault     Status = 0xF0 // sticky until the link is replaced
)

// Has reports whether any bit of flag is set.
func (s Status) Has(flag Status) bool {
	return s&flag != 0
}

func (s Status) String() string {
	if s == Idle {
		return "Idle"
	}
	var parts []string
	for _, f := range []struct {
		flag Status
		name string
	}{
		{Open, "Open"},
		{Connected, "Connected"},
		{Writing, "Writing"},
		{Reading, "Reading"},
		{Fault, "Fault"},
	} {
		if s.Has(f.flag) {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

// state holds the link status in a single atomic word. Every transition is
// one compare-and-swap, so Writing and Reading can never be observed set
// together.
type state struct {
	v atomic.Uint32
}

func (s *state) load() Status {
	return Status(s.v.Load())
}

func (s *state) set(flag Status) {
	for {
		cur := s.v.Load()
		if s.v.CompareAndSwap(cur, cur|uint32(flag)) {
			return
		}
	}
}

func (s *state) clear(flag Status) {
	for {
		cur := s.v.Load()
		if s.v.CompareAndSwap(cur, cur&^uint32(flag)) {
			return
		}
	}
}

// fault marks the link faulted and drops Open. It returns false if the
// link was already faulted.
func (s *state) fault() bool {
	for {
		cur := s.v.Load()
		if Status(cur).Has(Fault) {
			return false
		}
		next := (cur | uint32(Fault)) &^ uint32(Open)
		if s.v.CompareAndSwap(cur, next) {
			return true
		}
	}
}

// acquire sets flag (Reading or Writing) if the line is free. The returned
// release clears the flag exactly once, however many times it is called.
func (s *state) acquire(flag Status) (release func(), err error) {
	for {
		cur := Status(s.v.Load())
		if cur.Has(Fault) {
			return nil, ErrFaulted
		}
		if cur.Has(Reading | Writing) {
			return nil, ErrBusy
		}
		if s.v.CompareAndSwap(uint32(cur), uint32(cur|flag)) {
			var once sync.Once
			return func() {
				once.Do(func() { s.clear(flag) })
			}, nil
		}
	}
}
