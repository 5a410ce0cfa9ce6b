package pms5x03

import "io"

// StreamReader extracts frames from a byte stream, for the UART-wired
// sensor variants (PMS5003 et al.) which emit frames continuously. It
// resynchronises on the start marker after garbage or a torn read.
type StreamReader struct {
	r   io.Reader
	buf [FrameLen]byte
	n   int
}

// NewStreamReader wraps r. The reader should deliver raw sensor bytes;
// short reads are fine.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{r: r}
}

// Next blocks until one whole frame has been assembled and returns the
// decode result. A checksum or header fault discards the bad bytes and is
// returned to the caller; calling Next again resumes scanning.
func (s *StreamReader) Next() (Frame, error) {
	for {
		// Align buffer start with the frame marker.
		i := 0
		for i < s.n && s.buf[i] != header0 {
			i++
		}
		if i > 0 {
			copy(s.buf[:], s.buf[i:s.n])
			s.n -= i
		}

		if s.n >= 2 && s.buf[1] != header1 {
			// False marker; skip it and rescan.
			copy(s.buf[:], s.buf[1:s.n])
			s.n--
			continue
		}

		if s.n == FrameLen {
			f, err := ParseFrame(s.buf[:])
			// Consume the marker so a bad frame cannot loop forever.
			copy(s.buf[:], s.buf[1:])
			s.n--
			if err == nil {
				s.n = 0
			}
			return f, err
		}

		m, err := s.r.Read(s.buf[s.n:])
		s.n += m
		if err != nil && s.n < FrameLen {
			return Frame{}, err
		}
	}
}
