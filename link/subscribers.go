package link

import (
	"sync"

	"github.com/rs/zerolog"
)

type subscribers struct {
	mu     sync.Mutex
	next   int
	chans  map[int]chan Frame
	closed bool
	log    zerolog.Logger
}

func (s *subscribers) add(buffer int) (<-chan Frame, func()) {
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan Frame, buffer)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	if s.chans == nil {
		s.chans = make(map[int]chan Frame)
	}
	id := s.next
	s.next++
	s.chans[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.chans[id]; ok {
				delete(s.chans, id)
				close(c)
			}
		})
	}
}

func (s *subscribers) broadcast(f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.chans {
		select {
		case ch <- f:
		default:
			droppedFrames.Inc()
			s.log.Warn().Int("subscriber", id).Msg("subscriber full, frame dropped")
		}
	}
}

func (s *subscribers) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, ch := range s.chans {
		delete(s.chans, id)
		close(ch)
	}
}
