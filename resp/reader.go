package resp

import (
	"bufio"
	"bytes"
	"io"
	"math"
	"strconv"

	"github.com/joomcode/errorx"
	"github.com/joomcode/respipe/redis"
)

const (
	defaultBufSize   = 8192
	maxBulkLen       = 512 * 1024 * 1024
	maxArrayLen      = 1 << 31
	maxArrayPrealloc = 1024
)

// Reader decodes replies from a byte stream.
type Reader struct {
	b *bufio.Reader
}

// NewReader returns Reader with default buffer size.
func NewReader(r io.Reader) *Reader {
	return NewReaderSize(r, defaultBufSize)
}

// NewReaderSize returns Reader with buffer of at least size bytes.
// Header lines longer than buffer are rejected with redis.ErrHeaderlineTooLarge.
func NewReaderSize(r io.Reader, size int) *Reader {
	return &Reader{b: bufio.NewReaderSize(r, size)}
}

// Buffered returns number of bytes already read from stream but not decoded yet.
func (r *Reader) Buffered() int {
	return r.b.Buffered()
}

// ReadFrame reads single reply.
// Redis error replies are returned as frames of KindError. Returned error is always fatal for
// the stream: it is either io error or malformed response, so stream position is unknown.
func (r *Reader) ReadFrame() (Frame, error) {
	return Read(r.b)
}

type decoder func(b *bufio.Reader, line []byte) (Frame, error)

// decoders is indexed by header type byte.
var decoders [256]decoder

func init() {
	decoders['+'] = readStatus
	decoders['-'] = readError
	decoders[':'] = readInteger
	decoders['$'] = readBulk
	decoders['*'] = readArray
}

// Read reads single RESP reply from bufio.Reader.
func Read(b *bufio.Reader) (Frame, error) {
	line, isPrefix, err := b.ReadLine()
	if err != nil {
		return Frame{}, redis.ErrIO.WrapWithNoMessage(err)
	}

	if isPrefix {
		if len(line) > 64 {
			line = line[:64]
		}
		return Frame{}, redis.ErrHeaderlineTooLarge.NewWithNoMessage().
			WithProperty(redis.EKLine, string(line))
	}

	if len(line) == 0 {
		return Frame{}, redis.ErrHeaderlineEmpty.NewWithNoMessage()
	}

	dec := decoders[line[0]]
	if dec == nil {
		return Frame{}, redis.ErrUnknownHeaderType.NewWithNoMessage().
			WithProperty(redis.EKLine, string(line))
	}
	return dec(b, line[1:])
}

func readStatus(_ *bufio.Reader, line []byte) (Frame, error) {
	str := make([]byte, len(line))
	copy(str, line)
	return Frame{Kind: KindStatus, Str: str}, nil
}

func readInteger(_ *bufio.Reader, line []byte) (Frame, error) {
	v, ok := parseInt(line)
	if !ok {
		return Frame{}, intError(line)
	}
	return Frame{Kind: KindInteger, Int: v}, nil
}

func readBulk(b *bufio.Reader, line []byte) (Frame, error) {
	v, ok := parseInt(line)
	if !ok {
		return Frame{}, intError(line)
	}
	if v < 0 {
		return Frame{Kind: KindBulk, Null: true}, nil
	}
	if v > maxBulkLen {
		return Frame{}, redis.ErrResponseFormat.New("bulk is too large").WithProperty(redis.EKVal, v)
	}
	buf := make([]byte, v+2)
	if _, err := io.ReadFull(b, buf); err != nil {
		return Frame{}, redis.ErrIO.WrapWithNoMessage(err)
	}
	if buf[v] != '\r' || buf[v+1] != '\n' {
		return Frame{}, redis.ErrNoFinalRN.NewWithNoMessage()
	}
	return Frame{Kind: KindBulk, Str: buf[:v:v]}, nil
}

func readArray(b *bufio.Reader, line []byte) (Frame, error) {
	v, ok := parseInt(line)
	if !ok {
		return Frame{}, intError(line)
	}
	if v < 0 {
		return Frame{Kind: KindArray, Null: true}, nil
	}
	if v > maxArrayLen {
		return Frame{}, redis.ErrResponseFormat.New("array is too large").WithProperty(redis.EKVal, v)
	}
	// header length is not trusted until elements actually arrive
	items := make([]Frame, 0, min(v, maxArrayPrealloc))
	for i := int64(0); i < v; i++ {
		// error replies are frames, so they stay in place of the element
		item, err := Read(b)
		if err != nil {
			return Frame{}, err
		}
		items = append(items, item)
	}
	return Frame{Kind: KindArray, Array: items}, nil
}

var (
	movedPrefix       = []byte("MOVED ")
	askPrefix         = []byte("ASK ")
	clusterDownPrefix = []byte("CLUSTERDOWN")
	loadingPrefix     = []byte("LOADING")
)

func readError(_ *bufio.Reader, line []byte) (Frame, error) {
	txt := string(line)
	var err *errorx.Error
	switch {
	case bytes.HasPrefix(line, movedPrefix):
		return redirectError(redis.ErrMoved, line, txt)
	case bytes.HasPrefix(line, askPrefix):
		return redirectError(redis.ErrAsk, line, txt)
	case bytes.HasPrefix(line, clusterDownPrefix):
		err = redis.ErrClusterDown.New("%s", txt)
	case bytes.HasPrefix(line, loadingPrefix):
		err = redis.ErrLoading.New("%s", txt)
	default:
		err = redis.ErrResult.New("%s", txt)
	}
	return Frame{Kind: KindError, Err: err}, nil
}

// redirectError parses "MOVED <slot> <host>:<port>" and "ASK <slot> <host>:<port>".
func redirectError(typ *errorx.Type, line []byte, txt string) (Frame, error) {
	parts := bytes.Split(line, []byte(" "))
	if len(parts) < 3 {
		return Frame{}, redis.ErrResponseFormat.New("redirect is malformed").WithProperty(redis.EKLine, txt)
	}
	slot, ok := parseInt(parts[1])
	if !ok || slot < 0 || slot >= redis.NumSlots {
		return Frame{}, redis.ErrResponseFormat.New("redirect slot is malformed").WithProperty(redis.EKLine, txt)
	}
	addr := parts[2]
	colon := bytes.LastIndexByte(addr, ':')
	if colon < 0 {
		return Frame{}, redis.ErrResponseFormat.New("redirect address is malformed").WithProperty(redis.EKLine, txt)
	}
	port, err := strconv.Atoi(string(addr[colon+1:]))
	if err != nil || port <= 0 || port > 65535 {
		return Frame{}, redis.ErrResponseFormat.New("redirect port is malformed").WithProperty(redis.EKLine, txt)
	}
	host := string(bytes.Trim(addr[:colon], "[]"))
	rerr := typ.New("%s", txt).
		WithProperty(redis.EKMovedTo, string(addr)).
		WithProperty(redis.EKSlot, uint16(slot)).
		WithProperty(redis.EKHost, host).
		WithProperty(redis.EKPort, port)
	return Frame{Kind: KindError, Err: rerr}, nil
}

func intError(line []byte) error {
	return redis.ErrIntegerParsing.NewWithNoMessage().WithProperty(redis.EKLine, string(line))
}

func parseInt(buf []byte) (int64, bool) {
	if len(buf) == 0 {
		return 0, false
	}

	neg := buf[0] == '-'
	if neg {
		buf = buf[1:]
	}
	if len(buf) == 0 || len(buf) > 19 {
		return 0, false
	}
	limit := uint64(math.MaxInt64)
	if neg {
		limit++
	}
	v := uint64(0)
	for _, b := range buf {
		if b < '0' || b > '9' {
			return 0, false
		}
		d := uint64(b - '0')
		if v > (limit-d)/10 {
			return 0, false
		}
		v = v*10 + d
	}
	if neg {
		return -int64(v), true
	}
	return int64(v), true
}
