package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/allbin/labserial/link"
	"github.com/stretchr/testify/require"
)

func TestBuildFrame(t *testing.T) {
	f, err := buildFrame("#LAB?", false, true, "\r\n")
	require.NoError(t, err)
	require.Equal(t, link.Text("#LAB?\r\n"), f)

	f, err = buildFrame("#LAB?", false, false, "\n")
	require.NoError(t, err)
	require.Equal(t, "#LAB?", f.Text())

	f, err = buildFrame("01 02 FF", true, true, "\n")
	require.NoError(t, err)
	require.Equal(t, link.Binary([]byte{1, 2, 0xFF}), f)

	_, err = buildFrame("0G", true, false, "\n")
	require.Error(t, err)
	_, err = buildFrame("", false, true, "\n")
	require.Error(t, err)
}

func TestExpectFrame(t *testing.T) {
	_, verify, err := expectFrame("", "")
	require.NoError(t, err)
	require.False(t, verify)

	f, verify, err := expectFrame("Angstrem", "")
	require.NoError(t, err)
	require.True(t, verify)
	require.Equal(t, link.Text("Angstrem"), f)

	f, verify, err = expectFrame("", "01 03")
	require.NoError(t, err)
	require.True(t, verify)
	require.Equal(t, link.Binary([]byte{1, 3}), f)

	_, _, err = expectFrame("a", "01")
	require.Error(t, err)
	_, _, err = expectFrame("", "1")
	require.Error(t, err)
}

func TestPreview(t *testing.T) {
	require.Equal(t, "#LAB?·", preview(link.Text("#LAB?\n")))
	require.Equal(t, "01 02", preview(link.Binary([]byte{1, 2})))

	long := preview(link.Text(strings.Repeat("x", 80)))
	require.Equal(t, strings.Repeat("x", 50)+"...", long)

	longBin := preview(link.Binary(bytes.Repeat([]byte{0xAA}, 40)))
	require.True(t, strings.HasSuffix(longBin, " ..."))
}

func TestSendFrameWrites(t *testing.T) {
	port := &scriptedPort{}
	l := newScriptedLink(t, port)

	var out bytes.Buffer
	err := sendFrame(context.Background(), &out, l, link.Text("#LAB?\n"), link.Frame{}, false)
	require.NoError(t, err)
	require.Equal(t, []string{"#LAB?\n"}, port.written())
	require.Contains(t, out.String(), "Sent 6 B")
}

func TestSendFrameVerifies(t *testing.T) {
	port := &scriptedPort{replies: []string{lines("AngstremLabController v2")}}
	l := newScriptedLink(t, port)

	var out bytes.Buffer
	err := sendFrame(context.Background(), &out, l, link.Text("#LAB?\n"), link.Text("Angstrem"), true)
	require.NoError(t, err)
	require.Contains(t, out.String(), "Reply matched")
}

func TestSendFrameMismatch(t *testing.T) {
	port := &scriptedPort{replies: []string{lines("ERR")}}
	l := newScriptedLink(t, port)

	var out bytes.Buffer
	err := sendFrame(context.Background(), &out, l, link.Text("#LAB?\n"), link.Text("Angstrem"), true)
	require.ErrorIs(t, err, errNotVerified)
}

func TestSendFrameOpenFails(t *testing.T) {
	port := &scriptedPort{}
	l := newScriptedLink(t, port)
	require.NoError(t, l.Close())

	var out bytes.Buffer
	err := sendFrame(context.Background(), &out, l, link.Text("X"), link.Frame{}, false)
	require.ErrorIs(t, err, link.ErrNotOpen)
	require.Empty(t, port.written())
}
