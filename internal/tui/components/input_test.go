package components

import (
	"testing"

	"github.com/allbin/labserial/link"
	"github.com/stretchr/testify/require"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []byte
		wantErr bool
	}{
		{"spaced", "23 4C 41 42", []byte{0x23, 0x4C, 0x41, 0x42}, false},
		{"continuous", "234c4142", []byte{0x23, 0x4C, 0x41, 0x42}, false},
		{"prefixed", "0x01 0XFF", []byte{0x01, 0xFF}, false},
		{"surrounding space", "  0A  ", []byte{0x0A}, false},
		{"empty", "   ", nil, true},
		{"odd digits", "ABC", nil, true},
		{"not hex", "ZZ", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHex(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestInputFrameASCII(t *testing.T) {
	in := NewInput("\r\n")
	in.SetValue("#LAB?")

	f, err := in.Frame()
	require.NoError(t, err)
	require.Equal(t, link.KindText, f.Kind())
	require.Equal(t, "#LAB?\r\n", f.Text())

	in.SetValue("  ")
	_, err = in.Frame()
	require.Error(t, err)
}

func TestInputFrameHex(t *testing.T) {
	in := NewInput("\n")
	in.ToggleSendingMode()
	require.Equal(t, SendingModeHex, in.SendingMode())

	in.SetValue("01 02")
	f, err := in.Frame()
	require.NoError(t, err)
	require.Equal(t, link.KindBinary, f.Kind())
	require.Equal(t, []byte{1, 2}, f.Bytes())

	in.SetValue("0")
	_, err = in.Frame()
	require.Error(t, err)

	in.ToggleSendingMode()
	require.Equal(t, SendingModeASCII, in.SendingMode())
}

func TestInputHistory(t *testing.T) {
	in := NewInput("\n")
	in.AddToHistory("first")
	in.AddToHistory("second")
	in.AddToHistory("second")
	in.AddToHistory("   ")
	require.Len(t, in.history, 2)

	in.SetValue("draft")
	in.NavigateHistoryUp()
	require.Equal(t, "second", in.Value())
	in.NavigateHistoryUp()
	require.Equal(t, "first", in.Value())
	in.NavigateHistoryUp()
	require.Equal(t, "first", in.Value())

	in.NavigateHistoryDown()
	require.Equal(t, "second", in.Value())
	in.NavigateHistoryDown()
	require.Equal(t, "draft", in.Value())
}

func TestInputHistoryBounded(t *testing.T) {
	in := NewInput("\n")
	for i := 0; i < historySize+10; i++ {
		in.AddToHistory(string(rune('a'+i%26)) + string(rune('0'+i/26)))
	}
	require.Len(t, in.history, historySize)
}
