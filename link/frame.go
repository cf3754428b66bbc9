package link

import (
	"bytes"
	"fmt"
	"strings"
)

// Kind tells whether a frame carries text or raw bytes.
type Kind uint8

const (
	KindText Kind = iota + 1
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Frame is one logically complete unit of data: a text line or a byte block.
// Frames are immutable; Bytes returns a copy.
type Frame struct {
	kind Kind
	data []byte
}

// Text returns a text frame.
func Text(s string) Frame {
	return Frame{kind: KindText, data: []byte(s)}
}

// Binary returns a binary frame holding a copy of b.
func Binary(b []byte) Frame {
	return Frame{kind: KindBinary, data: bytes.Clone(b)}
}

// Kind returns the frame kind. The zero Frame has no kind.
func (f Frame) Kind() Kind {
	return f.kind
}

// IsZero reports whether f is the zero Frame.
func (f Frame) IsZero() bool {
	return f.kind == 0
}

// Text returns the payload as a string.
func (f Frame) Text() string {
	return string(f.data)
}

// Bytes returns a copy of the payload.
func (f Frame) Bytes() []byte {
	return bytes.Clone(f.data)
}

// Len returns the payload length in bytes.
func (f Frame) Len() int {
	return len(f.data)
}

func (f Frame) String() string {
	switch f.kind {
	case KindText:
		return fmt.Sprintf("text(%q)", f.data)
	case KindBinary:
		return fmt.Sprintf("binary(% X)", f.data)
	default:
		return "frame(none)"
	}
}

// Matches reports whether f satisfies expected: a text expectation is a
// substring of a text frame, a binary expectation must equal a binary frame
// byte for byte.
func (f Frame) Matches(expected Frame) bool {
	if f.kind != expected.kind {
		return false
	}
	switch expected.kind {
	case KindText:
		return strings.Contains(string(f.data), string(expected.data))
	case KindBinary:
		return bytes.Equal(f.data, expected.data)
	default:
		return false
	}
}
