package testbed

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"sync"
)

// Stream is in-memory duplex stream: reads are served from scripted replies, writes are captured.
//
// Non-blocking stream returns io.EOF when replies are exhausted.
// Blocking stream waits for Reply or Close.
type Stream struct {
	mutex    sync.Mutex
	cond     sync.Cond
	in       bytes.Buffer
	out      bytes.Buffer
	blocking bool
	closed   bool
}

// NewStream returns non-blocking stream with prepared replies.
func NewStream(replies ...string) *Stream {
	s := &Stream{}
	s.cond.L = &s.mutex
	s.in.WriteString(strings.Join(replies, ""))
	return s
}

// NewBlockingStream returns stream which blocks reads until reply is added.
func NewBlockingStream(replies ...string) *Stream {
	s := NewStream(replies...)
	s.blocking = true
	return s
}

// Reply adds raw reply data.
func (s *Stream) Reply(replies ...string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, r := range replies {
		s.in.WriteString(r)
	}
	s.cond.Broadcast()
}

// Read implements io.Reader.
func (s *Stream) Read(b []byte) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for s.in.Len() == 0 {
		if s.closed {
			return 0, io.ErrClosedPipe
		}
		if !s.blocking {
			return 0, io.EOF
		}
		s.cond.Wait()
	}
	return s.in.Read(b)
}

// Write implements io.Writer.
func (s *Stream) Write(b []byte) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return 0, io.ErrClosedPipe
	}
	s.out.Write(b)
	s.cond.Broadcast()
	return len(b), nil
}

// Close implements io.Closer. Blocked reads are woken up.
func (s *Stream) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.closed = true
	s.cond.Broadcast()
	return nil
}

// Closed reports whether stream were closed.
func (s *Stream) Closed() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.closed
}

// Written returns all data written so far.
func (s *Stream) Written() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.out.String()
}

// TakeWritten returns data written so far and forgets it.
func (s *Stream) TakeWritten() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	res := s.out.String()
	s.out.Reset()
	return res
}

// WaitWritten blocks until written data contains substr or stream is closed.
func (s *Stream) WaitWritten(substr string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for !strings.Contains(s.out.String(), substr) {
		if s.closed {
			return false
		}
		s.cond.Wait()
	}
	return true
}

// Pending returns number of reply bytes not read yet.
func (s *Stream) Pending() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.in.Len()
}

// Cmd formats command the way it is sent over the wire. It is handy for comparing with Written.
func Cmd(args ...string) string {
	var b strings.Builder
	b.WriteString("*")
	b.WriteString(strconv.Itoa(len(args)))
	b.WriteString("\r\n")
	for _, a := range args {
		b.WriteString("$")
		b.WriteString(strconv.Itoa(len(a)))
		b.WriteString("\r\n")
		b.WriteString(a)
		b.WriteString("\r\n")
	}
	return b.String()
}
