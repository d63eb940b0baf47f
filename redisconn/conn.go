package redisconn

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/joomcode/errorx"
	"github.com/joomcode/respipe/redis"
	"github.com/joomcode/respipe/resp"
)

const (
	defaultIOTimeout   = 1 * time.Second
	defaultDialTimeout = 2 * time.Second
	defaultKeepAlive   = 300 * time.Millisecond
	defaultBufferSize  = 16 * 1024
)

// Opts - options for Conn
type Opts struct {
	// DB - database number
	DB int
	// Username for AUTH (redis 6 ACL). Used only with Password.
	Username string
	// Password for AUTH
	Password string
	// IOTimeout - timeout on every read/write to socket.
	// If IOTimeout == 0, then it is set to 1 second.
	// If IOTimeout < 0, then timeout is disabled.
	IOTimeout time.Duration
	// DialTimeout is timeout for net.Dialer.
	// If DialTimeout == 0, then it is set to 2 seconds.
	DialTimeout time.Duration
	// TCPKeepAlive - KeepAlive parameter for net.Dialer.
	// If TCPKeepAlive == 0, then it is set to 300 ms.
	// If TCPKeepAlive < 0, then keep-alive is disabled.
	TCPKeepAlive time.Duration
	// WriteBufferSize and ReadBufferSize - sizes of buffers. Default is 16KB each.
	WriteBufferSize int
	ReadBufferSize  int
	// Handle is returned with Conn.Handle()
	Handle interface{}
	// Logger. Default is DefaultLogger(ctx) for Connect and stderr logger for NewConn.
	Logger Logger
}

func (opts Opts) withDefaults(ctx context.Context) Opts {
	if opts.IOTimeout == 0 {
		opts.IOTimeout = defaultIOTimeout
	} else if opts.IOTimeout < 0 {
		opts.IOTimeout = 0
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.TCPKeepAlive == 0 {
		opts.TCPKeepAlive = defaultKeepAlive
	} else if opts.TCPKeepAlive < 0 {
		opts.TCPKeepAlive = -1
	}
	if opts.WriteBufferSize <= 0 {
		opts.WriteBufferSize = defaultBufferSize
	}
	if opts.ReadBufferSize <= 0 {
		opts.ReadBufferSize = defaultBufferSize
	}
	if opts.Logger == nil {
		opts.Logger = DefaultLogger(ctx)
	}
	return opts
}

// Conn is a session with single redis server.
type Conn struct {
	addr string
	opts Opts

	c   io.ReadWriteCloser
	dio *deadlineIO
	r   *resp.Reader
	w   *resp.Writer

	mutex  sync.Mutex
	err    error
	closed bool
}

// Connect dials redis server at addr and performs handshake.
//
// Address could be "host:port", "tcp://host:port", "unix:///path/to/socket" or
// a path to unix socket starting with "." or "/".
func Connect(ctx context.Context, addr string, opts Opts) (*Conn, error) {
	if ctx == nil {
		return nil, redis.ErrContextIsNil.NewWithNoMessage()
	}
	if addr == "" {
		return nil, redis.ErrNoAddressProvided.NewWithNoMessage()
	}
	conn := &Conn{
		addr: addr,
		opts: opts.withDefaults(ctx),
	}
	conn.report(LogConnecting{})
	if err := conn.dial(ctx); err != nil {
		conn.report(LogConnectFailed{Error: err})
		return nil, err
	}
	conn.report(LogConnected{LocalAddr: conn.LocalAddr(), RemoteAddr: conn.RemoteAddr()})
	return conn, nil
}

// NewConn wraps already established stream. No handshake is performed.
// Deadlines are used only if rw has SetReadDeadline and SetWriteDeadline methods.
func NewConn(rw io.ReadWriteCloser, opts Opts) *Conn {
	conn := &Conn{opts: opts.withDefaults(context.Background())}
	if nc, ok := rw.(net.Conn); ok && nc.RemoteAddr() != nil {
		conn.addr = nc.RemoteAddr().String()
	}
	conn.setup(rw)
	return conn
}

func (conn *Conn) setup(rw io.ReadWriteCloser) {
	conn.c = rw
	conn.dio = newDeadlineIO(rw, conn.opts.IOTimeout)
	conn.r = resp.NewReaderSize(conn.dio, conn.opts.ReadBufferSize)
	conn.w = resp.NewWriterSize(conn.dio, conn.opts.WriteBufferSize)
}

func splitAddr(addr string) (network, address string) {
	switch {
	case addr[0] == '.' || addr[0] == '/':
		return "unix", addr
	case strings.HasPrefix(addr, "unix://"):
		return "unix", addr[len("unix://"):]
	case strings.HasPrefix(addr, "tcp://"):
		return "tcp", addr[len("tcp://"):]
	}
	return "tcp", addr
}

func (conn *Conn) dial(ctx context.Context) error {
	network, address := splitAddr(conn.addr)
	dialer := net.Dialer{
		Timeout:   conn.opts.DialTimeout,
		KeepAlive: conn.opts.TCPKeepAlive,
	}
	nc, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return redis.ErrDial.WrapWithNoMessage(err).WithProperty(redis.EKConnection, conn.addr)
	}
	conn.setup(nc)

	if conn.opts.Password != "" {
		if conn.opts.Username != "" {
			conn.Send("AUTH", conn.opts.Username, conn.opts.Password)
		} else {
			conn.Send("AUTH", conn.opts.Password)
		}
	}
	conn.Send("PING")
	if conn.opts.DB != 0 {
		conn.Send("SELECT", conn.opts.DB)
	}
	if err := conn.Flush(); err != nil {
		nc.Close()
		return redis.ErrConnSetup.WrapWithNoMessage(err).WithProperty(redis.EKConnection, conn.addr)
	}

	if conn.opts.Password != "" {
		res, err := conn.Receive()
		if err == nil && res.IsError() {
			err = res.Err
			if strings.Contains(strings.ToLower(res.Err.Message()), "password") {
				nc.Close()
				return redis.ErrAuth.WrapWithNoMessage(err).WithProperty(redis.EKConnection, conn.addr)
			}
		}
		if err != nil {
			nc.Close()
			return redis.ErrConnSetup.WrapWithNoMessage(err).WithProperty(redis.EKConnection, conn.addr)
		}
	}

	res, err := conn.Receive()
	if err == nil && res.IsError() {
		err = res.Err
	}
	if err != nil {
		nc.Close()
		return redis.ErrConnSetup.WrapWithNoMessage(err).WithProperty(redis.EKConnection, conn.addr)
	}
	if res.Kind != resp.KindStatus || string(res.Str) != "PONG" {
		nc.Close()
		return redis.ErrConnSetup.New("ping response mismatch").
			WithProperty(redis.EKConnection, conn.addr).
			WithProperty(redis.EKResponse, res.String())
	}

	if conn.opts.DB != 0 {
		res, err = conn.Receive()
		if err == nil && res.IsError() {
			err = res.Err
		}
		if err != nil {
			nc.Close()
			return redis.ErrConnSetup.WrapWithNoMessage(err).
				WithProperty(redis.EKConnection, conn.addr).
				WithProperty(redis.EKDb, conn.opts.DB)
		}
		if res.Kind != resp.KindStatus || string(res.Str) != "OK" {
			nc.Close()
			return redis.ErrConnSetup.New("SELECT db response mismatch").
				WithProperty(redis.EKConnection, conn.addr).
				WithProperty(redis.EKDb, conn.opts.DB).
				WithProperty(redis.EKResponse, res.String())
		}
	}
	return nil
}

// Send buffers command. Nothing is transmitted until Flush.
// Argument serialization error is returned, but doesn't break connection.
func (conn *Conn) Send(cmd string, args ...interface{}) error {
	if err := conn.Err(); err != nil {
		return err
	}
	if err := conn.w.WriteRequest(cmd, args); err != nil {
		if conn.w.Err() != nil {
			return conn.Invalidate(err)
		}
		if rerr := errorx.Cast(err); rerr != nil {
			return rerr.WithProperty(redis.EKRequest, redis.Req(cmd, args...))
		}
		return err
	}
	return nil
}

// SendRequest buffers request.
func (conn *Conn) SendRequest(req redis.Request) error {
	return conn.Send(req.Cmd, req.Args...)
}

// Flush transmits buffered commands.
func (conn *Conn) Flush() error {
	if err := conn.Err(); err != nil {
		return err
	}
	if err := conn.w.Flush(); err != nil {
		return conn.Invalidate(err)
	}
	return nil
}

// Buffered returns number of bytes buffered but not flushed yet.
func (conn *Conn) Buffered() int {
	return conn.w.Buffered()
}

// Receive reads next reply. Redis error reply is returned as frame of resp.KindError.
// Returned error means connection is broken.
func (conn *Conn) Receive() (resp.Frame, error) {
	if err := conn.Err(); err != nil {
		return resp.Frame{}, err
	}
	f, err := conn.r.ReadFrame()
	if err != nil {
		return resp.Frame{}, conn.Invalidate(err)
	}
	return f, nil
}

// Do sends command, flushes and receives its reply.
// It should not be mixed with pending Send-s: reply of first pending command will be returned.
func (conn *Conn) Do(cmd string, args ...interface{}) (resp.Frame, error) {
	if err := conn.Send(cmd, args...); err != nil {
		return resp.Frame{}, err
	}
	if err := conn.Flush(); err != nil {
		return resp.Frame{}, err
	}
	return conn.Receive()
}

// Err returns error that made connection broken, or nil.
func (conn *Conn) Err() error {
	conn.mutex.Lock()
	defer conn.mutex.Unlock()
	return conn.err
}

// Broken reports whether connection is not usable anymore.
func (conn *Conn) Broken() bool {
	return conn.Err() != nil
}

// Invalidate marks connection as broken with err and closes underlying stream.
// It returns the error connection is broken with: if it were already broken, previous error is kept.
func (conn *Conn) Invalidate(err error) error {
	conn.mutex.Lock()
	if conn.err != nil {
		err = conn.err
		conn.mutex.Unlock()
		return err
	}
	conn.err = err
	conn.mutex.Unlock()

	conn.report(LogBroken{Error: err})
	if conn.c != nil {
		conn.c.Close()
	}
	return err
}

// Close closes connection. Following calls fail with redis.ErrConnClosed.
func (conn *Conn) Close() error {
	conn.mutex.Lock()
	if conn.closed {
		conn.mutex.Unlock()
		return nil
	}
	conn.closed = true
	wasBroken := conn.err != nil
	if !wasBroken {
		conn.err = redis.ErrConnClosed.NewWithNoMessage().WithProperty(redis.EKConnection, conn.addr)
	}
	conn.mutex.Unlock()

	conn.report(LogClosed{})
	if wasBroken || conn.c == nil {
		return nil
	}
	return conn.c.Close()
}

// SetIOTimeout changes timeout of every following read and write. Non-positive timeout disables it.
func (conn *Conn) SetIOTimeout(to time.Duration) {
	conn.dio.setTimeout(to)
}

// IOTimeout returns current io timeout. Zero means timeout is disabled.
func (conn *Conn) IOTimeout() time.Duration {
	return conn.dio.to
}

// Addr returns address connection were created with.
func (conn *Conn) Addr() string {
	return conn.addr
}

// RemoteAddr is address of Redis socket.
func (conn *Conn) RemoteAddr() string {
	if nc, ok := conn.c.(net.Conn); ok && nc.RemoteAddr() != nil {
		return nc.RemoteAddr().String()
	}
	return ""
}

// LocalAddr is outgoing socket addr.
func (conn *Conn) LocalAddr() string {
	if nc, ok := conn.c.(net.Conn); ok && nc.LocalAddr() != nil {
		return nc.LocalAddr().String()
	}
	return ""
}

// Handle returns user specified handle from Opts.
func (conn *Conn) Handle() interface{} {
	return conn.opts.Handle
}

func (conn *Conn) String() string {
	return fmt.Sprintf("*redisconn.Conn{addr: %s}", conn.addr)
}
