package stomp

import (
	"net"
	"sync"
)

// Conn is a message-oriented connection. A STOMP frame may span several
// messages and a message may carry several frames.
type Conn interface {
	Read() ([]byte, error)
	Write(data []byte) error
	Close() error
}

// stream presents a Conn as the byte stream go-stomp reads frames from.
// Messages are concatenated in arrival order. Done is closed as soon as the
// transport fails or the stream is closed.
type stream struct {
	conn Conn
	buf  []byte

	once     sync.Once
	done     chan struct{}
	err      error
	closeErr error
}

func newStream(conn Conn) *stream {
	return &stream{conn: conn, done: make(chan struct{})}
}

func (s *stream) Read(p []byte) (int, error) {
	for len(s.buf) == 0 {
		msg, err := s.conn.Read()
		if err != nil {
			s.shutdown(err)
			return 0, err
		}
		s.buf = msg
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

func (s *stream) Write(p []byte) (int, error) {
	if err := s.conn.Write(p); err != nil {
		s.shutdown(err)
		return 0, err
	}
	return len(p), nil
}

func (s *stream) Close() error {
	s.shutdown(net.ErrClosed)
	return s.closeErr
}

// Done is closed once the stream has ended.
func (s *stream) Done() <-chan struct{} {
	return s.done
}

// Err is the reason the stream ended. Valid after Done is closed.
func (s *stream) Err() error {
	return s.err
}

func (s *stream) shutdown(err error) {
	s.once.Do(func() {
		s.err = err
		s.closeErr = s.conn.Close()
		close(s.done)
	})
}
