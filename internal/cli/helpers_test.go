package cli

import (
	"bytes"
	"io"
	"sync"
)

// syncBuffer provides thread-safe access to a bytes.Buffer.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// ioPipe returns a reader that blocks until the writer is closed.
func ioPipe() (io.Reader, io.WriteCloser) {
	return io.Pipe()
}
