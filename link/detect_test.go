package link

import (
	"context"
	"testing"
	"time"

	serial "github.com/allbin/labserial"
	"github.com/stretchr/testify/require"
)

var (
	probe  = Text("#LAB?\n")
	expect = Text("AngstremLabController")
)

func TestDetectMatchesThirdReply(t *testing.T) {
	inst := &fakeInstrument{respond: replies("BOOT\n", "ERR 7\n", "AngstremLabController v2.1\n")}
	l := newOpenLink(t, inst)

	require.True(t, l.Detect(context.Background(), probe, expect, 3))
	require.Len(t, inst.written(), 3)
	require.True(t, l.Status().Has(Connected))
}

func TestDetectExhaustsAttempts(t *testing.T) {
	inst := &fakeInstrument{respond: func(int, []byte) []byte { return []byte("ERR 7\n") }}
	l := newOpenLink(t, inst)

	require.False(t, l.Detect(context.Background(), probe, expect, 3))
	require.Len(t, inst.written(), 3)
	require.False(t, l.Status().Has(Connected))
}

func TestDetectSilentInstrument(t *testing.T) {
	inst := &fakeInstrument{}
	l := newOpenLink(t, inst, WithResponseTimeout(30*time.Millisecond))

	require.False(t, l.Detect(context.Background(), probe, expect, 3))
	require.Len(t, inst.written(), 3)
}

func TestDetectReplyAfterLongCooldown(t *testing.T) {
	inst := &fakeInstrument{respond: replies("AngstremLabController\n")}
	l := newOpenLink(t, inst, WithWriteCooldown(100*time.Millisecond), WithResponseTimeout(50*time.Millisecond))

	require.True(t, l.Detect(context.Background(), probe, expect, 1))
	require.Len(t, inst.written(), 1)
}

func TestDetectDefaultAttempts(t *testing.T) {
	inst := &fakeInstrument{}
	l := newOpenLink(t, inst, WithResponseTimeout(20*time.Millisecond), WithAttempts(2))

	require.False(t, l.Detect(context.Background(), probe, expect, 0))
	require.Len(t, inst.written(), 2)
}

func TestDetectFailedSendUsesAttempt(t *testing.T) {
	inst := &fakeInstrument{
		writeErr: []error{serial.ErrWriteTimeout},
		respond:  replies("", "AngstremLabController\n"),
	}
	l := newOpenLink(t, inst)

	require.True(t, l.Detect(context.Background(), probe, expect, 2))
	require.Len(t, inst.written(), 2)

	inst2 := &fakeInstrument{writeErr: []error{serial.ErrWriteTimeout}}
	l2 := newOpenLink(t, inst2)
	require.False(t, l2.Detect(context.Background(), probe, expect, 1))
	require.Len(t, inst2.written(), 1)
}

func TestDetectCancel(t *testing.T) {
	inst := &fakeInstrument{}
	l := newOpenLink(t, inst, WithResponseTimeout(0))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	require.False(t, l.Detect(ctx, probe, expect, 3))
	require.Less(t, time.Since(start), 500*time.Millisecond)
	require.Len(t, inst.written(), 1)
}

func TestDetectAlreadyCancelled(t *testing.T) {
	inst := &fakeInstrument{respond: replies("AngstremLabController\n")}
	l := newOpenLink(t, inst)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.False(t, l.Detect(ctx, probe, expect, 3))
	require.Empty(t, inst.written())
}

func TestDetectOnFaultedLink(t *testing.T) {
	inst := &fakeInstrument{respond: replies("AngstremLabController\n")}
	l := newOpenLink(t, inst)
	l.faultWith(serial.ErrPortClosed)

	require.False(t, l.Detect(context.Background(), probe, expect, 3))
	require.Empty(t, inst.written())
}

func TestSecondExchangeRefused(t *testing.T) {
	inst := &fakeInstrument{}
	l := newOpenLink(t, inst, WithResponseTimeout(0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool)
	go func() { done <- l.Detect(ctx, probe, expect, 1) }()

	require.Eventually(t, l.waiters.busy, time.Second, time.Millisecond)

	start := time.Now()
	require.False(t, l.SendAndVerify(context.Background(), Text("RUN\n"), Text("OK")))
	require.Less(t, time.Since(start), 100*time.Millisecond)

	cancel()
	require.False(t, <-done)
	require.False(t, l.waiters.busy())
	require.Len(t, inst.written(), 1)
}

func TestCloseEndsWait(t *testing.T) {
	inst := &fakeInstrument{}
	l := newOpenLink(t, inst, WithResponseTimeout(0))

	done := make(chan bool)
	go func() { done <- l.Detect(context.Background(), probe, expect, 3) }()
	require.Eventually(t, func() bool { return len(inst.written()) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, l.Close())
	select {
	case ok := <-done:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("detect still waiting after Close")
	}
}

func TestSendAndVerify(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		expected Frame
		want     bool
	}{
		{"exact bytes", "\x01\x02\x03", Binary([]byte{0x01, 0x02, 0x03}), true},
		{"prefix only", "\x01\x02\x03", Binary([]byte{0x01, 0x02}), false},
		{"different bytes", "\x01\x02\x04", Binary([]byte{0x01, 0x02, 0x03}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := &fakeInstrument{respond: replies(tt.reply)}
			l := newOpenLink(t, inst, WithFraming(FramingBlock))

			got := l.SendAndVerify(context.Background(), Binary([]byte{0x10}), tt.expected)
			require.Equal(t, tt.want, got)
			require.Len(t, inst.written(), 1)
			require.False(t, l.Status().Has(Connected))
		})
	}
}

func TestSendAndVerifyText(t *testing.T) {
	inst := &fakeInstrument{respond: replies("STATUS READY 21.5C\n")}
	l := newOpenLink(t, inst)

	require.True(t, l.SendAndVerify(context.Background(), Text("STATUS?\n"), Text("READY")))
}
