package resp

import (
	"bufio"
	"io"

	"github.com/joomcode/respipe/redis"
)

// Writer encodes requests into buffered stream.
// Payloads larger than free buffer space flush the buffer and go to the stream directly.
type Writer struct {
	w       *bufio.Writer
	scratch []byte
	err     error
}

// NewWriter returns Writer with default buffer size.
func NewWriter(w io.Writer) *Writer {
	return NewWriterSize(w, defaultBufSize)
}

// NewWriterSize returns Writer with buffer of at least size bytes.
func NewWriterSize(w io.Writer, size int) *Writer {
	return &Writer{
		w:       bufio.NewWriterSize(w, size),
		scratch: make([]byte, 0, 64),
	}
}

// WriteCommand writes command with binary arguments.
func (w *Writer) WriteCommand(cmd []byte, args ...[]byte) error {
	w.head('*', int64(len(args)+1))
	w.bulk(cmd)
	for _, arg := range args {
		w.bulk(arg)
	}
	return w.err
}

// WriteRequest writes command with arguments of any type accepted by AppendRequest.
// Nothing is written if some argument could not be serialized.
func (w *Writer) WriteRequest(cmd string, args []interface{}) error {
	if w.err != nil {
		return w.err
	}
	if err := CheckArgs(args); err != nil {
		return err
	}
	w.head('*', int64(len(args)+1))
	w.bulkString(cmd)
	for _, arg := range args {
		switch v := arg.(type) {
		case string:
			w.bulkString(v)
		case []byte:
			w.bulk(v)
		default:
			w.scratch = appendArg(w.scratch[:0], v)
			w.write(w.scratch)
		}
	}
	if cap(w.scratch) > 64*1024 {
		w.scratch = make([]byte, 0, 64)
	}
	return w.err
}

// Flush writes buffered data to underlying stream.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if err := w.w.Flush(); err != nil {
		w.err = redis.ErrIO.WrapWithNoMessage(err)
	}
	return w.err
}

// Buffered returns number of bytes not flushed yet.
func (w *Writer) Buffered() int {
	return w.w.Buffered()
}

// Err returns first write error. Writer stops writing after error.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) head(t byte, n int64) {
	w.scratch = appendHead(w.scratch[:0], t, n)
	w.write(w.scratch)
}

func (w *Writer) bulk(b []byte) {
	w.head('$', int64(len(b)))
	w.write(b)
	w.write(crlf)
}

func (w *Writer) bulkString(s string) {
	w.head('$', int64(len(s)))
	if w.err == nil {
		if _, err := w.w.WriteString(s); err != nil {
			w.err = redis.ErrIO.WrapWithNoMessage(err)
		}
	}
	w.write(crlf)
}

var crlf = []byte{'\r', '\n'}

func (w *Writer) write(b []byte) {
	if w.err != nil {
		return
	}
	if _, err := w.w.Write(b); err != nil {
		w.err = redis.ErrIO.WrapWithNoMessage(err)
	}
}
