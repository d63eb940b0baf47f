package pipeline

import (
	"strings"

	"github.com/joomcode/respipe/redis"
	"github.com/joomcode/respipe/redisconn"
	"github.com/joomcode/respipe/resp"
)

type txState uint8

const (
	// txIdle - no transaction were opened yet.
	txIdle txState = iota
	// txOpen - MULTI were sent, commands are queued into envelope.
	txOpen
	// txClosed - last transaction were closed with EXEC or DISCARD.
	txClosed
)

// queued is an entry of pipeline's FIFO of expected replies.
type queued struct {
	res pending
	// env is set for EXEC reply: its length is checked when reply arrives.
	env *envelope
	// ack is true for QUEUED acknowledgement of command inside of transaction.
	ack bool
}

// Pipeline queues commands and matches replies to them in order.
type Pipeline struct {
	conn    *redisconn.Conn
	pending []queued
	tx      txState
	env     *envelope
}

// New returns pipeline over connection.
// Connection should not be used by other code until pipeline is synced.
func New(conn *redisconn.Conn) *Pipeline {
	return &Pipeline{conn: conn}
}

// Conn returns underlying connection.
func (p *Pipeline) Conn() *redisconn.Conn {
	return p.conn
}

// Len returns number of replies expected by next Sync.
func (p *Pipeline) Len() int {
	return len(p.pending)
}

// InMulti reports whether transaction is open.
func (p *Pipeline) InMulti() bool {
	return p.tx == txOpen
}

func (p *Pipeline) push(res pending, env *envelope, ack bool) {
	p.pending = append(p.pending, queued{res: res, env: env, ack: ack})
}

func forbidden(cmd string, args []interface{}) error {
	switch strings.ToUpper(cmd) {
	case "MULTI", "EXEC", "DISCARD":
		return redis.ErrForbiddenCommand.New("use Multi, Exec and Discard methods for transactions").
			WithProperty(redis.EKRequest, redis.Req(cmd, args...))
	}
	if redis.Dangerous(cmd) {
		return redis.ErrForbiddenCommand.New("command switches connection mode and could not be pipelined").
			WithProperty(redis.EKRequest, redis.Req(cmd, args...))
	}
	return nil
}

// Enqueue writes command into connection's buffer and returns future for its reply.
// Command is not transmitted until Sync.
// If command could not be serialized, returned future holds the error and nothing is sent.
func Enqueue[T any](p *Pipeline, build Builder[T], cmd string, args ...interface{}) *Future[T] {
	if err := forbidden(cmd, args); err != nil {
		return failedFuture[T](err)
	}
	if err := p.conn.Send(cmd, args...); err != nil {
		return failedFuture[T](err)
	}
	f := newFuture(build)
	if p.tx == txOpen {
		p.push(queuedAck{child: f}, nil, true)
		p.env.children = append(p.env.children, f)
	} else {
		p.push(f, nil, false)
	}
	return f
}

// Do enqueues command with result converted with Value builder.
func (p *Pipeline) Do(cmd string, args ...interface{}) *Future[interface{}] {
	return Enqueue(p, Value, cmd, args...)
}

// Send enqueues request with result converted with Value builder.
func (p *Pipeline) Send(req redis.Request) *Future[interface{}] {
	return Enqueue(p, Value, req.Cmd, req.Args...)
}

// Sync transmits buffered commands and reads replies for all of them in order.
//
// Returned error is fatal for connection: connection is broken or its replies are out of sync.
// In this case every future still waiting for reply is bound to that error.
func (p *Pipeline) Sync() error {
	pending := p.pending
	p.pending = nil
	if err := p.conn.Flush(); err != nil {
		failAll(pending, err)
		return err
	}
	for i, q := range pending {
		f, err := p.conn.Receive()
		if err == nil && q.env != nil {
			if err = q.env.verify(f); err != nil {
				err = p.conn.Invalidate(err)
			}
		}
		if err != nil {
			failAll(pending[i:], err)
			return err
		}
		q.res.set(f)
	}
	return nil
}

// SyncAll syncs pipeline and returns results of all pending commands in order.
// Redis error replies are returned as values of type *errorx.Error.
// Commands issued inside of transaction are not listed: their results are in EXEC's result.
func (p *Pipeline) SyncAll() ([]interface{}, error) {
	pending := p.pending
	err := p.Sync()
	res := make([]interface{}, 0, len(pending))
	for _, q := range pending {
		if q.ack {
			continue
		}
		res = append(res, q.res.result())
	}
	return res, err
}

func failAll(pending []queued, err error) {
	for _, q := range pending {
		q.res.fail(err)
	}
}

// queuedAck consumes QUEUED acknowledgement of command inside of transaction.
// Error reply (wrong arity, unknown command) is delivered to the command itself.
type queuedAck struct {
	child child
}

func (q queuedAck) set(f resp.Frame) {
	if f.IsError() {
		q.child.set(f)
	}
}

func (q queuedAck) fail(err error) {
	q.child.fail(err)
}

func (q queuedAck) result() interface{} {
	return nil
}
