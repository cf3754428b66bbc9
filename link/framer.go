package link

import "bytes"

// framer cuts a byte stream into frames. It is only touched by the drain
// holding the Reading flag, so it needs no lock of its own.
type framer struct {
	mode    Framing
	delim   []byte
	max     int
	partial []byte
}

func newFramer(cfg Config) *framer {
	return &framer{
		mode:  cfg.Framing,
		delim: []byte(cfg.Delimiter),
		max:   cfg.MaxLineLength,
	}
}

// feed consumes one chunk and returns the frames it completes. In line mode
// an unterminated tail stays buffered for the next call; overflow reports
// that the tail outgrew the line limit and was flushed as a frame.
func (f *framer) feed(chunk []byte) (frames []Frame, overflow bool) {
	if f.mode == FramingBlock {
		if len(chunk) == 0 {
			return nil, false
		}
		return []Frame{Binary(chunk)}, false
	}

	f.partial = append(f.partial, chunk...)
	for {
		idx := bytes.Index(f.partial, f.delim)
		if idx < 0 {
			break
		}
		line := bytes.TrimSuffix(f.partial[:idx], []byte("\r"))
		if len(line) > 0 {
			frames = append(frames, Text(string(line)))
		}
		f.partial = f.partial[idx+len(f.delim):]
	}

	if len(f.partial) > f.max {
		frames = append(frames, Text(string(f.partial)))
		f.partial = nil
		overflow = true
	}
	if len(f.partial) == 0 {
		f.partial = nil
	}
	return frames, overflow
}

// pending returns the buffered, unterminated bytes.
func (f *framer) pending() int {
	return len(f.partial)
}
