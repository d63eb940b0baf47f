package redisdumb_test

import (
	"net"
	"testing"

	"github.com/joomcode/errorx"
	"github.com/joomcode/respipe/redis"
	. "github.com/joomcode/respipe/redisdumb"
	"github.com/joomcode/respipe/testbed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listen(t *testing.T) *testbed.FakeServer {
	s, err := testbed.ListenFake()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// fakeServer answers every request with reply(args).
func fakeServer(t *testing.T, reply func(args []string) string) (addr string, seen chan []string) {
	s := listen(t)
	s.Serve(reply)
	return s.Addr(), s.Seen
}

func TestDo(t *testing.T) {
	addr, seen := fakeServer(t, func(args []string) string {
		return "$" + string(rune('0'+len(args[1]))) + "\r\n" + args[1] + "\r\n"
	})
	res := Do(addr, "ECHO", "hello")
	assert.Equal(t, []byte("hello"), res)
	assert.Equal(t, []string{"ECHO", "hello"}, <-seen)

	res = Do(addr, "ECHO", make(chan int))
	assert.True(t, errorx.IsOfType(redis.AsError(res), redis.ErrArgumentType))
}

func TestDo_DialError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()

	res := Do(addr, "PING")
	assert.True(t, errorx.IsOfType(redis.AsError(res), redis.ErrDial))
}

func TestConn_ErrorReplyIsValue(t *testing.T) {
	addr, _ := fakeServer(t, func(args []string) string {
		return "-MOVED 3999 127.0.0.1:1\r\n"
	})
	c := Conn{Addr: addr}
	defer c.Close()
	res := c.Do("GET", "a")
	rerr := redis.AsErrorx(res)
	if assert.NotNil(t, rerr) {
		assert.True(t, rerr.IsOfType(redis.ErrMoved))
	}
	assert.Equal(t, addr, c.Addr, "simple connection doesn't follow redirects")
}

func TestConn_FollowsMoved(t *testing.T) {
	target, targetSeen := fakeServer(t, func(args []string) string {
		return "+OK\r\n"
	})
	source, _ := fakeServer(t, func(args []string) string {
		return "-MOVED 3999 " + target + "\r\n"
	})
	c := Conn{Addr: source, Type: TypeCluster}
	defer c.Close()
	assert.Equal(t, "OK", c.Do("SET", "a", 1))
	assert.Equal(t, []string{"SET", "a", "1"}, <-targetSeen)
	assert.Equal(t, target, c.Addr, "MOVED re-targets connection")
}

func TestConn_FollowsAsk(t *testing.T) {
	target, targetSeen := fakeServer(t, func(args []string) string {
		return "+OK\r\n"
	})
	source, sourceSeen := fakeServer(t, func(args []string) string {
		if args[0] == "SET" {
			return "-ASK 3999 " + target + "\r\n"
		}
		return ":1\r\n"
	})
	c := Conn{Addr: source, Type: TypeCluster}
	defer c.Close()
	assert.Equal(t, "OK", c.Do("SET", "a", 1))
	assert.Equal(t, []string{"SET", "a", "1"}, <-sourceSeen)
	assert.Equal(t, []string{"ASKING"}, <-targetSeen)
	assert.Equal(t, []string{"SET", "a", "1"}, <-targetSeen)
	assert.Equal(t, source, c.Addr, "ASK redirects single request")

	assert.Equal(t, int64(1), c.Do("DEL", "a"))
	assert.Equal(t, []string{"DEL", "a"}, <-sourceSeen)
}

func TestConn_RedirectLoopIsBounded(t *testing.T) {
	s := listen(t)
	self := s.Addr()
	s.Serve(func(args []string) string {
		return "-MOVED 1 " + self + "\r\n"
	})
	c := Conn{Addr: self, Type: TypeCluster}
	defer c.Close()
	res := c.Do("GET", "a")
	assert.True(t, errorx.IsOfType(redis.AsError(res), redis.ErrMoved))
	assert.Len(t, s.Seen, 5)
}
