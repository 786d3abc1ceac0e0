package device

import (
	"bytes"
	"io"
	"sync"

	"github.com/mwantia/xila/data"
)

// Stream is a terminal device over a host reader and writer. Input is pumped
// by a background goroutine so that Read never blocks: it returns 0 when
// nothing has arrived yet, and io.EOF once the host input is exhausted.
type Stream struct {
	CharacterBase

	in  io.Reader
	out io.Writer

	once   sync.Once
	mu     sync.Mutex
	buffer bytes.Buffer
	err    error
}

func NewStream(in io.Reader, out io.Writer) *Stream {
	return &Stream{in: in, out: out}
}

func (s *Stream) pump() {
	chunk := make([]byte, 256)
	for {
		n, err := s.in.Read(chunk)

		s.mu.Lock()
		s.buffer.Write(chunk[:n])
		if err != nil {
			s.err = err
		}
		s.mu.Unlock()

		if err != nil {
			return
		}
	}
}

func (s *Stream) Read(p []byte) (int, error) {
	if s.in == nil {
		return 0, data.ErrUnsupportedOperation
	}
	s.once.Do(func() { go s.pump() })

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buffer.Len() > 0 {
		n, _ := s.buffer.Read(p)
		return n, nil
	}
	switch {
	case s.err == io.EOF:
		return 0, io.EOF
	case s.err != nil:
		return 0, data.ErrInputOutput
	}
	return 0, nil
}

func (s *Stream) Write(p []byte) (int, error) {
	if s.out == nil {
		return 0, data.ErrUnsupportedOperation
	}

	n, err := s.out.Write(p)
	if err != nil {
		return n, data.ErrInputOutput
	}
	return n, nil
}

func (s *Stream) Flush() error {
	if f, ok := s.out.(interface{ Sync() error }); ok {
		// terminals reject fsync; that is not a failure to flush
		_ = f.Sync()
	}
	return nil
}

func (s *Stream) IsTerminal() bool { return true }
