package redisconn_test

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/joomcode/errorx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joomcode/respipe/redis"
	. "github.com/joomcode/respipe/redisconn"
	"github.com/joomcode/respipe/resp"
	"github.com/joomcode/respipe/testbed"
)

var quiet = Opts{Logger: NoopLogger{}}

func TestConn_Do(t *testing.T) {
	s := testbed.NewStream("+PONG\r\n", "$3\r\nbar\r\n")
	conn := NewConn(s, quiet)

	f, err := conn.Do("PING")
	require.NoError(t, err)
	assert.Equal(t, resp.Status("PONG"), f)

	f, err = conn.Do("GET", "foo")
	require.NoError(t, err)
	assert.Equal(t, []byte("bar"), f.Str)
	assert.Equal(t, testbed.Cmd("PING")+testbed.Cmd("GET", "foo"), s.Written())
	assert.False(t, conn.Broken())
}

func TestConn_SendBuffersUntilFlush(t *testing.T) {
	s := testbed.NewStream("+OK\r\n", ":2\r\n")
	conn := NewConn(s, quiet)

	require.NoError(t, conn.Send("SET", "a", 1))
	require.NoError(t, conn.SendRequest(redis.Req("INCR", "a")))
	assert.Equal(t, "", s.Written())
	assert.True(t, conn.Buffered() > 0)

	require.NoError(t, conn.Flush())
	assert.Equal(t, testbed.Cmd("SET", "a", "1")+testbed.Cmd("INCR", "a"), s.Written())

	f, err := conn.Receive()
	require.NoError(t, err)
	assert.Equal(t, resp.Status("OK"), f)
	f, err = conn.Receive()
	require.NoError(t, err)
	assert.Equal(t, resp.Integer(2), f)
}

func TestConn_ErrorReplyDoesntBreak(t *testing.T) {
	s := testbed.NewStream("-ERR wrong number of arguments\r\n", "+PONG\r\n")
	conn := NewConn(s, quiet)

	f, err := conn.Do("GET")
	require.NoError(t, err)
	assert.True(t, f.IsError())
	assert.False(t, conn.Broken())

	f, err = conn.Do("PING")
	require.NoError(t, err)
	assert.Equal(t, resp.Status("PONG"), f)
}

func TestConn_ArgumentErrorDoesntBreak(t *testing.T) {
	s := testbed.NewStream("+PONG\r\n")
	conn := NewConn(s, quiet)

	err := conn.Send("SET", "a", struct{}{})
	require.Error(t, err)
	assert.True(t, errorx.IsOfType(err, redis.ErrArgumentType))
	req, _ := errorx.Cast(err).Property(redis.EKRequest)
	assert.Equal(t, "SET", req.(redis.Request).Cmd)
	assert.False(t, conn.Broken())

	f, err := conn.Do("PING")
	require.NoError(t, err)
	assert.Equal(t, resp.Status("PONG"), f)
	assert.Equal(t, testbed.Cmd("PING"), s.Written())
}

func TestConn_BrokenIsSticky(t *testing.T) {
	s := testbed.NewStream("+OK\r\n")
	conn := NewConn(s, quiet)

	_, err := conn.Do("SET", "a", "b")
	require.NoError(t, err)

	_, err = conn.Do("GET", "a")
	require.Error(t, err)
	assert.True(t, errorx.IsOfType(err, redis.ErrIO))
	assert.True(t, redis.IsBroken(err))
	assert.True(t, conn.Broken())
	assert.Equal(t, err, conn.Err())
	assert.True(t, s.Closed(), "broken connection closes stream")

	assert.Equal(t, err, conn.Send("PING"))
	assert.Equal(t, err, conn.Flush())
	_, rerr := conn.Receive()
	assert.Equal(t, err, rerr)
	_, rerr = conn.Do("PING")
	assert.Equal(t, err, rerr)
}

func TestConn_ProtocolErrorBreaks(t *testing.T) {
	s := testbed.NewStream("%3\r\n", "+OK\r\n")
	conn := NewConn(s, quiet)

	_, err := conn.Do("HELLO")
	assert.True(t, errorx.IsOfType(err, redis.ErrUnknownHeaderType))
	assert.True(t, conn.Broken())
}

func TestConn_InvalidateKeepsFirstError(t *testing.T) {
	conn := NewConn(testbed.NewStream(), quiet)
	first := redis.ErrExecDesync.New("first")
	second := redis.ErrExecDesync.New("second")

	assert.Equal(t, first, conn.Invalidate(first))
	assert.Equal(t, first, conn.Invalidate(second))
	assert.Equal(t, first, conn.Err())
}

func TestConn_Close(t *testing.T) {
	s := testbed.NewStream()
	conn := NewConn(s, quiet)

	require.NoError(t, conn.Close())
	assert.True(t, s.Closed())
	assert.NoError(t, conn.Close())

	err := conn.Send("PING")
	assert.True(t, errorx.IsOfType(err, redis.ErrConnClosed))
	assert.True(t, redis.IsBroken(err))
}

func TestConn_IOTimeoutSettings(t *testing.T) {
	conn := NewConn(testbed.NewStream(), quiet)
	assert.Equal(t, time.Second, conn.IOTimeout())

	conn.SetIOTimeout(0)
	assert.Equal(t, time.Duration(0), conn.IOTimeout())
	conn.SetIOTimeout(-time.Second)
	assert.Equal(t, time.Duration(0), conn.IOTimeout())
	conn.SetIOTimeout(5 * time.Millisecond)
	assert.Equal(t, 5*time.Millisecond, conn.IOTimeout())

	conn = NewConn(testbed.NewStream(), Opts{IOTimeout: -1, Logger: NoopLogger{}, Handle: 42})
	assert.Equal(t, time.Duration(0), conn.IOTimeout())
	assert.Equal(t, 42, conn.Handle())
}

func TestConn_IOTimeoutFires(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	conn := NewConn(client, Opts{IOTimeout: 30 * time.Millisecond, Logger: NoopLogger{}})
	go bufio.NewReader(server).ReadString('\n')

	start := time.Now()
	_, err := conn.Do("PING")
	require.Error(t, err)
	assert.True(t, errorx.IsOfType(err, redis.ErrIO))
	assert.True(t, errorx.HasTrait(err, redis.ErrTraitConnectivity))
	assert.WithinDuration(t, start, time.Now(), time.Second)
}

func TestConnect_Opts(t *testing.T) {
	_, err := Connect(nil, "127.0.0.1:6379", quiet)
	assert.True(t, errorx.IsOfType(err, redis.ErrContextIsNil))

	_, err = Connect(context.Background(), "", quiet)
	assert.True(t, errorx.IsOfType(err, redis.ErrNoAddressProvided))
}

func TestConnect_DialError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()

	_, err = Connect(context.Background(), "tcp://"+addr, quiet)
	require.Error(t, err)
	assert.True(t, errorx.IsOfType(err, redis.ErrDial))
	assert.True(t, errorx.HasTrait(err, redis.ErrTraitConnectivity))
}

// handshakeServer accepts single connection and answers requests with replies in order.
func handshakeServer(t *testing.T, replies ...string) (string, chan []string) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	seen := make(chan []string, 16)
	go func() {
		c, err := l.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		r := resp.NewReader(c)
		for _, reply := range replies {
			f, err := r.ReadFrame()
			if err != nil {
				return
			}
			args := make([]string, len(f.Array))
			for i := range f.Array {
				args[i] = string(f.Array[i].Str)
			}
			seen <- args
			c.Write([]byte(reply))
		}
		// hold connection until client closes it
		r.ReadFrame()
	}()
	return l.Addr().String(), seen
}

func TestConnect_Handshake(t *testing.T) {
	addr, seen := handshakeServer(t, "+OK\r\n", "+PONG\r\n", "+OK\r\n")
	conn, err := Connect(context.Background(), addr, Opts{
		Username: "user",
		Password: "secret",
		DB:       3,
		Logger:   NoopLogger{},
	})
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, []string{"AUTH", "user", "secret"}, <-seen)
	assert.Equal(t, []string{"PING"}, <-seen)
	assert.Equal(t, []string{"SELECT", "3"}, <-seen)
	assert.Equal(t, addr, conn.Addr())
	assert.Equal(t, addr, conn.RemoteAddr())
	assert.NotEmpty(t, conn.LocalAddr())
	assert.Equal(t, "*redisconn.Conn{addr: "+addr+"}", conn.String())
}

func TestConnect_WrongPassword(t *testing.T) {
	addr, _ := handshakeServer(t, "-WRONGPASS invalid username-password pair\r\n", "+PONG\r\n")
	_, err := Connect(context.Background(), addr, Opts{Password: "asdf", Logger: NoopLogger{}})
	require.Error(t, err)
	assert.True(t, errorx.IsOfType(err, redis.ErrAuth))
}

func TestConnect_WrongPing(t *testing.T) {
	addr, _ := handshakeServer(t, "+PANG\r\n")
	_, err := Connect(context.Background(), addr, quiet)
	require.Error(t, err)
	assert.True(t, errorx.IsOfType(err, redis.ErrConnSetup))
}

func TestConnect_WrongDB(t *testing.T) {
	addr, _ := handshakeServer(t, "+PONG\r\n", "-ERR DB index is out of range\r\n")
	_, err := Connect(context.Background(), addr, Opts{DB: 1024, Logger: NoopLogger{}})
	require.Error(t, err)
	assert.True(t, errorx.IsOfType(err, redis.ErrConnSetup))
	db, _ := errorx.Cast(err).Property(redis.EKDb)
	assert.Equal(t, 1024, db)
}

func TestConnect_LogsWithContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := logger.WithContext(context.Background())

	addr, _ := handshakeServer(t, "+PONG\r\n")
	conn, err := Connect(ctx, addr, Opts{})
	require.NoError(t, err)
	conn.Close()

	out := buf.String()
	assert.Contains(t, out, `"message":"redis: connecting"`)
	assert.Contains(t, out, `"message":"redis: connected"`)
	assert.Contains(t, out, `"message":"redis: connection closed"`)
	assert.Contains(t, out, `"addr":"`+addr+`"`)
}

func TestZerologLogger_Events(t *testing.T) {
	var buf bytes.Buffer
	conn := NewConn(testbed.NewStream(), Opts{Logger: ZerologLogger{Logger: zerolog.New(&buf)}})

	_, err := conn.Do("PING")
	require.Error(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"level":"warn"`)
	assert.Contains(t, lines[0], `"message":"redis: connection broken"`)
}
