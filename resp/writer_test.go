package resp_test

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/joomcode/errorx"
	"github.com/joomcode/respipe/redis"
	. "github.com/joomcode/respipe/resp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_WriteCommand(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out)

	require.NoError(t, w.WriteCommand([]byte("GET"), []byte("key")))
	assert.Equal(t, 0, out.Len(), "nothing is written before flush")
	assert.True(t, w.Buffered() > 0)

	require.NoError(t, w.Flush())
	assert.Equal(t, "*2\r\n$3\r\nGET\r\n$3\r\nkey\r\n", out.String())
	assert.Equal(t, 0, w.Buffered())
}

func TestWriter_WriteRequestMatchesAppendRequest(t *testing.T) {
	args := []interface{}{"str", []byte("bytes"), 42, -7, uint64(9), 1.5, true, nil, []rune("руны"), []uint16{'h', 'i'}}
	expected, err := AppendRequest(nil, "CMD", args)
	require.NoError(t, err)

	var out bytes.Buffer
	w := NewWriterSize(&out, 16)
	require.NoError(t, w.WriteRequest("CMD", args))
	require.NoError(t, w.Flush())
	assert.Equal(t, string(expected), out.String())
}

func TestWriter_LargePayload(t *testing.T) {
	big := strings.Repeat("x", 100000)
	var out bytes.Buffer
	w := NewWriterSize(&out, 64)
	require.NoError(t, w.WriteRequest("SET", []interface{}{"k", big}))
	require.NoError(t, w.Flush())

	r := NewReader(&out)
	f, err := r.ReadFrame()
	require.NoError(t, err)
	if assert.Len(t, f.Array, 3) {
		assert.Equal(t, []byte("SET"), f.Array[0].Str)
		assert.Equal(t, []byte(big), f.Array[2].Str)
	}
}

func TestWriter_BadArgumentWritesNothing(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out)
	err := w.WriteRequest("SET", []interface{}{"k", struct{}{}})
	assert.True(t, errorx.IsOfType(err, redis.ErrArgumentType))
	assert.Equal(t, 0, w.Buffered())
	assert.NoError(t, w.Err(), "argument error doesn't spoil writer")

	require.NoError(t, w.WriteRequest("PING", nil))
	require.NoError(t, w.Flush())
	assert.Equal(t, "*1\r\n$4\r\nPING\r\n", out.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestWriter_StickyError(t *testing.T) {
	w := NewWriterSize(failingWriter{}, 16)
	require.NoError(t, w.WriteRequest("PING", nil))
	err := w.Flush()
	if assert.Error(t, err) {
		assert.True(t, errorx.IsOfType(err, redis.ErrIO))
		assert.True(t, redis.IsBroken(err))
	}
	assert.Equal(t, err, w.Err())
	assert.Equal(t, err, w.WriteRequest("PING", nil))
	assert.Equal(t, err, w.Flush())
}

func TestWriter_RoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		[]byte("plain"),
		[]byte("line\r\nbreak\r\n"),
		[]byte("\r\n"),
		{0, 1, 0, 0xFF, 0xFE},
		[]byte("привет, 世界 😀"),
		bytes.Repeat([]byte("ab\r\n\x00\xff"), 5000),
	}

	var out bytes.Buffer
	w := NewWriterSize(&out, 64)
	for _, p := range payloads {
		require.NoError(t, w.WriteCommand([]byte("ECHO"), p))
	}
	require.NoError(t, w.Flush())

	// a request is a valid reply as well: array of bulks
	r := NewReader(bufio.NewReaderSize(&out, 16))
	for _, p := range payloads {
		f, err := r.ReadFrame()
		require.NoError(t, err)
		require.Len(t, f.Array, 2)
		assert.Equal(t, []byte("ECHO"), f.Array[0].Str)
		assert.Equal(t, KindBulk, f.Array[1].Kind)
		assert.False(t, f.Array[1].Null)
		assert.True(t, bytes.Equal(p, f.Array[1].Str), "%q", p)
	}
	_, err := r.ReadFrame()
	assert.True(t, errorx.IsOfType(err, redis.ErrIO))
}
