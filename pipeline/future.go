package pipeline

import (
	"github.com/joomcode/respipe/redis"
	"github.com/joomcode/respipe/resp"
)

// pending is a slot for a reply expected from connection.
type pending interface {
	// set stores reply. It is called at most once, by Pipeline.Sync.
	set(f resp.Frame)
	// fail binds slot to fatal error if it were not bound yet.
	fail(err error)
	// result resolves slot and returns value, or error as a value.
	result() interface{}
}

// resolver is a dependency of a Future: transaction's EXEC reply for commands queued inside MULTI.
type resolver interface {
	resolve()
	// failure returns error of resolved dependency.
	failure() error
}

type futureState uint8

const (
	stateEmpty futureState = iota
	stateHasData
	stateResolved
)

// Future is a deferred result of pipelined command.
type Future[T any] struct {
	build Builder[T]
	frame resp.Frame
	value T
	err   error
	dep   resolver
	state futureState
	// resolving guards against re-entrance while resolving.
	resolving bool
}

func newFuture[T any](build Builder[T]) *Future[T] {
	return &Future[T]{build: build}
}

func failedFuture[T any](err error) *Future[T] {
	return &Future[T]{err: err, state: stateResolved}
}

func (f *Future[T]) set(frame resp.Frame) {
	if f.state != stateEmpty {
		return
	}
	f.frame = frame
	f.state = stateHasData
}

func (f *Future[T]) fail(err error) {
	if f.state != stateEmpty {
		return
	}
	f.err = err
	f.state = stateResolved
}

func (f *Future[T]) setDependency(dep resolver) {
	f.dep = dep
}

func (f *Future[T]) resolve() {
	if f.state != stateHasData || f.resolving {
		return
	}
	f.resolving = true
	if f.frame.IsError() {
		f.err = f.frame.Err
	} else {
		f.value, f.err = f.build(f.frame)
	}
	f.frame = resp.Frame{}
	f.state = stateResolved
	f.resolving = false
}

func (f *Future[T]) failure() error {
	if f.state == stateResolved {
		return f.err
	}
	return nil
}

func (f *Future[T]) result() interface{} {
	f.resolve()
	if f.err != nil {
		return f.err
	}
	if f.state != stateResolved {
		return redis.ErrNotYetAvailable.New("reply is not received yet")
	}
	return f.value
}

// Value returns result of command.
//
// Redis error reply is returned as error (*errorx.Error of redis.ErrResult type).
// If pipeline were not synced yet, redis.ErrNotYetAvailable is returned.
// If connection were broken while waiting for reply, connection error is returned.
func (f *Future[T]) Value() (T, error) {
	if f.dep != nil {
		f.dep.resolve()
	}
	switch f.state {
	case stateEmpty:
		var zero T
		if f.dep != nil {
			if err := f.dep.failure(); err != nil {
				return zero, err
			}
		}
		return zero, redis.ErrNotYetAvailable.New("reply is not received yet")
	case stateHasData:
		f.resolve()
	}
	return f.value, f.err
}

// Err returns error of Value.
func (f *Future[T]) Err() error {
	_, err := f.Value()
	return err
}

// Ready reports whether reply (or error) is available, ie Value will not return redis.ErrNotYetAvailable.
func (f *Future[T]) Ready() bool {
	if f.state != stateEmpty {
		return true
	}
	if f.dep != nil {
		f.dep.resolve()
		return f.state != stateEmpty || f.dep.failure() != nil
	}
	return false
}
