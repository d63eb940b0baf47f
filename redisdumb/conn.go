// Package redisdumb is a simple synchronous client for tests and tools.
// It dials lazily, writes single request and reads single reply, without any pipelining.
package redisdumb

import (
	"bufio"
	"net"
	"time"

	"github.com/joomcode/respipe/redis"
	"github.com/joomcode/respipe/resp"
)

// ConnType - type of connection (simple server or cluster node)
type ConnType int

const (
	// TypeSimple - connection to single server. Redirections are returned as errors.
	TypeSimple ConnType = 0
	// TypeCluster - connection to cluster node. MOVED and ASK are followed.
	TypeCluster ConnType = 1
)

// DefaultTimeout is a default timeout for dial and io.
var DefaultTimeout = 5 * time.Second

// maxRedirects is a number of redirections followed by single Do.
const maxRedirects = 5

// Conn is a simple client connection.
type Conn struct {
	Addr    string
	C       net.Conn
	R       *bufio.Reader
	Timeout time.Duration
	Type    ConnType
}

// Do executes command and returns its result.
// Result is value of resp.Frame.Value(): redis error reply and io error are returned as error.
// Broken connection is reconnected once.
func (c *Conn) Do(cmd string, args ...interface{}) interface{} {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	req, err := resp.AppendRequest(nil, cmd, args)
	if err != nil {
		return err
	}
	try := 1
	if c.C != nil {
		try = 2
	}
	var res interface{}
	asking := false
	// ASK redirects single request only
	askedFrom := ""
	defer func() {
		if askedFrom != "" {
			c.Close()
			c.Addr = askedFrom
		}
	}()
	for i := 0; i < try; i++ {
		if c.C == nil {
			c.C, err = net.DialTimeout("tcp", c.Addr, timeout)
			if err != nil {
				return redis.ErrDial.WrapWithNoMessage(err).WithProperty(redis.EKConnection, c.Addr)
			}
			c.R = bufio.NewReader(c.C)
		}
		c.C.SetDeadline(time.Now().Add(timeout))
		buf := req
		if asking {
			buf, _ = resp.AppendRequest(nil, "ASKING", nil)
			buf = append(buf, req...)
		}
		if _, err = c.C.Write(buf); err != nil {
			res = redis.ErrIO.WrapWithNoMessage(err)
			c.Close()
			continue
		}
		if asking {
			if f, err := resp.Read(c.R); err != nil || f.IsError() {
				res = f.Value()
				if err != nil {
					res = err
				}
				c.Close()
				continue
			}
		}
		f, err := resp.Read(c.R)
		if err != nil {
			res = err
			c.Close()
			continue
		}
		res = f.Value()
		if !f.IsError() || c.Type != TypeCluster {
			return res
		}
		redirect, ok := redis.ParseRedirect(f.Err)
		if !ok {
			return res
		}
		asking = redirect.Ask
		if asking && askedFrom == "" {
			askedFrom = c.Addr
		}
		c.Close()
		c.Addr = redirect.Addr()
		if try < maxRedirects {
			try++
		}
	}
	return res
}

// Close closes connection.
func (c *Conn) Close() {
	if c.C != nil {
		c.C.Close()
		c.C = nil
	}
}

// Do is shortcut for issuing single command to redis by address.
func Do(addr string, cmd string, args ...interface{}) interface{} {
	c := Conn{Addr: addr}
	defer c.Close()
	return c.Do(cmd, args...)
}
