package pipeline

import (
	"github.com/joomcode/respipe/redis"
	"github.com/joomcode/respipe/redisconn"
	"github.com/joomcode/respipe/resp"
)

// child is a future of command queued inside of transaction.
type child interface {
	pending
	setDependency(dep resolver)
}

// envelope collects commands of single MULTI/EXEC block.
type envelope struct {
	children []child
	exec     *Future[[]interface{}]
}

// verify checks EXEC reply against number of queued commands.
func (env *envelope) verify(f resp.Frame) error {
	if f.Kind != resp.KindArray || f.Null {
		return nil
	}
	if len(f.Array) != len(env.children) {
		return redis.ErrExecDesync.New("EXEC returned %d results for %d queued commands",
			len(f.Array), len(env.children)).
			WithProperty(redis.EKExpected, len(env.children)).
			WithProperty(redis.EKResponse, f.String())
	}
	return nil
}

// build binds EXEC results to queued commands.
func (env *envelope) build(f resp.Frame) ([]interface{}, error) {
	if f.Kind != resp.KindArray {
		return nil, unexpected(f, "array")
	}
	if f.Null {
		return nil, redis.ErrExecAborted.New("transaction aborted because of WATCH")
	}
	res := make([]interface{}, len(env.children))
	for i, c := range env.children {
		c.set(f.Array[i])
		res[i] = c.result()
	}
	return res, nil
}

// Multi opens transaction.
func (p *Pipeline) Multi() (*Future[string], error) {
	if p.tx == txOpen {
		return nil, redis.ErrNestedMulti.New("MULTI calls can not be nested")
	}
	if err := p.conn.Send("MULTI"); err != nil {
		return nil, err
	}
	f := newFuture(Status)
	p.push(f, nil, false)
	p.tx = txOpen
	p.env = &envelope{}
	return f, nil
}

// Exec closes transaction. Returned future resolves to results of queued commands;
// futures of queued commands are resolved with the same results.
//
// If transaction were aborted because of WATCH, envelope and every queued command
// resolve to redis.ErrExecAborted. If redis refused transaction (EXECABORT), its error is
// returned for envelope, and commands get either their own queuing error or the same EXECABORT.
func (p *Pipeline) Exec() (*Future[[]interface{}], error) {
	if p.tx != txOpen {
		return nil, redis.ErrExecWithoutMulti.New("EXEC without MULTI")
	}
	if err := p.conn.Send("EXEC"); err != nil {
		return nil, err
	}
	env := p.env
	p.env = nil
	p.tx = txClosed
	env.exec = newFuture(env.build)
	for _, c := range env.children {
		c.setDependency(env.exec)
	}
	p.push(env.exec, env, false)
	return env.exec, nil
}

// Discard drops transaction. Futures of commands queued inside of it stay unresolved.
func (p *Pipeline) Discard() (*Future[string], error) {
	if p.tx != txOpen {
		return nil, redis.ErrDiscardWithoutMulti.New("DISCARD without MULTI")
	}
	if err := p.conn.Send("DISCARD"); err != nil {
		return nil, err
	}
	p.env = nil
	p.tx = txClosed
	f := newFuture(Status)
	p.push(f, nil, false)
	return f, nil
}

// Transaction is a pipeline with open MULTI.
type Transaction struct {
	p     *Pipeline
	multi *Future[string]
}

// Begin starts transaction on connection.
func Begin(conn *redisconn.Conn) (*Transaction, error) {
	p := New(conn)
	multi, err := p.Multi()
	if err != nil {
		return nil, err
	}
	return &Transaction{p: p, multi: multi}, nil
}

// Pipeline returns underlying pipeline. Use it with Enqueue for typed results.
func (t *Transaction) Pipeline() *Pipeline {
	return t.p
}

// Do queues command into transaction.
func (t *Transaction) Do(cmd string, args ...interface{}) *Future[interface{}] {
	return t.p.Do(cmd, args...)
}

// Exec executes transaction and returns results of all queued commands.
// Redis error replies of individual commands are returned as values.
func (t *Transaction) Exec() ([]interface{}, error) {
	exec, err := t.p.Exec()
	if err != nil {
		return nil, err
	}
	if err = t.p.Sync(); err != nil {
		return nil, err
	}
	if err = t.multi.Err(); err != nil {
		return nil, err
	}
	return exec.Value()
}

// Discard drops transaction.
func (t *Transaction) Discard() error {
	f, err := t.p.Discard()
	if err != nil {
		return err
	}
	if err = t.p.Sync(); err != nil {
		return err
	}
	return f.Err()
}
