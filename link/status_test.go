package link

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{Idle, "Idle"},
		{Open, "Open"},
		{Open | Writing, "Open|Writing"},
		{Open | Connected | Reading, "Open|Connected|Reading"},
		{Fault, "Fault"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			require.Equal(t, tt.want, tt.status.String())
		})
	}
}

func TestAcquireIsExclusive(t *testing.T) {
	var s state
	s.set(Open)

	release, err := s.acquire(Writing)
	require.NoError(t, err)
	require.True(t, s.load().Has(Writing))

	_, err = s.acquire(Reading)
	require.ErrorIs(t, err, ErrBusy)
	_, err = s.acquire(Writing)
	require.ErrorIs(t, err, ErrBusy)

	release()
	release()
	require.Equal(t, Open, s.load())

	release, err = s.acquire(Reading)
	require.NoError(t, err)
	release()
}

func TestAcquireFaulted(t *testing.T) {
	var s state
	s.set(Open)
	require.True(t, s.fault())
	require.False(t, s.fault(), "second fault reports no transition")

	st := s.load()
	require.True(t, st.Has(Fault))
	require.False(t, st.Has(Open))

	_, err := s.acquire(Writing)
	require.ErrorIs(t, err, ErrFaulted)
	_, err = s.acquire(Reading)
	require.ErrorIs(t, err, ErrFaulted)
}

func TestAcquireNeverOverlaps(t *testing.T) {
	var (
		s       state
		inside  atomic.Int32
		overlap atomic.Bool
		wg      sync.WaitGroup
	)

	for i := 0; i < 16; i++ {
		flag := Reading
		if i%2 == 0 {
			flag = Writing
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				release, err := s.acquire(flag)
				if err != nil {
					continue
				}
				if inside.Add(1) > 1 {
					overlap.Store(true)
				}
				st := s.load()
				if st.Has(Reading) && st.Has(Writing) {
					overlap.Store(true)
				}
				inside.Add(-1)
				release()
			}
		}()
	}
	wg.Wait()

	require.False(t, overlap.Load())
	require.Equal(t, Idle, s.load())
}
