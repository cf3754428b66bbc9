package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/allbin/labserial/link"
	"github.com/stretchr/testify/require"
)

func TestRunDetect(t *testing.T) {
	port := &scriptedPort{replies: []string{lines("?"), lines("AngstremLabController")}}
	l := newScriptedLink(t, port)

	var out bytes.Buffer
	err := runDetect(context.Background(), &out, l, link.Text("#LAB?\n"), link.Text("AngstremLabController"), 3)
	require.NoError(t, err)
	require.Contains(t, out.String(), "Instrument detected")
	require.Len(t, port.written(), 2)
	require.True(t, l.Status().Has(link.Connected))
}

func TestRunDetectNoAnswer(t *testing.T) {
	port := &scriptedPort{}
	l := newScriptedLink(t, port)

	var out bytes.Buffer
	err := runDetect(context.Background(), &out, l, link.Text("#LAB?\n"), link.Text("AngstremLabController"), 2)
	require.ErrorIs(t, err, errNotDetected)
	require.Contains(t, out.String(), "No instrument answered")
	require.Len(t, port.written(), 2)
}
