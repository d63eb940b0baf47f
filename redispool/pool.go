package redispool

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/joomcode/respipe/redis"
	"github.com/joomcode/respipe/redisconn"
	"github.com/joomcode/respipe/resp"
)

const defaultMaxIdle = 8

// DialFunc establishes new connection.
type DialFunc func(ctx context.Context) (*redisconn.Conn, error)

// Opts - options for Pool
type Opts struct {
	// Dial creates new connections. Required.
	Dial DialFunc
	// MaxActive limits number of borrowed connections. Get blocks when limit is reached.
	// If MaxActive <= 0, number of connections is not limited.
	MaxActive int
	// MaxIdle - number of idle connections kept for reuse.
	// If MaxIdle == 0, then it is set to 8. If MaxIdle < 0, idle connections are not kept.
	MaxIdle int
	// TestOnBorrow makes Get to PING idle connection before handing it out.
	TestOnBorrow bool
	// DialRate limits rate of new connections per second. Zero means no limit.
	DialRate rate.Limit
	// DialBurst - burst of DialRate. Default is 1.
	DialBurst int
}

// Stats is a snapshot of pool counters.
type Stats struct {
	// Active - number of borrowed connections.
	Active int
	// Idle - number of connections waiting for reuse.
	Idle int
	// Dials - number of successful dials.
	Dials uint64
	// DialErrors - number of failed dials.
	DialErrors uint64
	// Waits - number of Get calls that had to wait for MaxActive slot.
	Waits uint64
	// Discarded - number of connections closed instead of being reused.
	Discarded uint64
}

// Pool is a pool of connections. It is safe for concurrent use.
type Pool struct {
	opts    Opts
	sem     *semaphore.Weighted
	limiter *rate.Limiter

	mutex  sync.Mutex
	idle   []*redisconn.Conn
	active int
	closed bool

	dials      uint64
	dialErrors uint64
	waits      uint64
	discarded  uint64
}

// New creates pool. No connection is established until Get.
func New(opts Opts) (*Pool, error) {
	if opts.Dial == nil {
		return nil, redis.ErrNoDialProvided.NewWithNoMessage()
	}
	if opts.MaxIdle == 0 {
		opts.MaxIdle = defaultMaxIdle
	} else if opts.MaxIdle < 0 {
		opts.MaxIdle = 0
	}
	if opts.DialBurst <= 0 {
		opts.DialBurst = 1
	}
	p := &Pool{opts: opts}
	if opts.MaxActive > 0 {
		p.sem = semaphore.NewWeighted(int64(opts.MaxActive))
	}
	if opts.DialRate > 0 {
		p.limiter = rate.NewLimiter(opts.DialRate, opts.DialBurst)
	}
	return p, nil
}

// Get borrows connection: idle one is reused, otherwise new one is dialed.
// If MaxActive connections are borrowed, Get waits until one is returned or ctx is done.
func (p *Pool) Get(ctx context.Context) (*redisconn.Conn, error) {
	if ctx == nil {
		return nil, redis.ErrContextIsNil.NewWithNoMessage()
	}
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}
	conn, err := p.get(ctx)
	if err != nil {
		p.release()
		return nil, err
	}
	return conn, nil
}

func (p *Pool) acquire(ctx context.Context) error {
	if p.sem == nil || p.sem.TryAcquire(1) {
		return nil
	}
	atomic.AddUint64(&p.waits, 1)
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return redis.ErrPoolTimeout.Wrap(err, "waiting for connection")
	}
	return nil
}

func (p *Pool) release() {
	if p.sem != nil {
		p.sem.Release(1)
	}
}

func (p *Pool) get(ctx context.Context) (*redisconn.Conn, error) {
	for {
		conn, err := p.popIdle()
		if err != nil {
			return nil, err
		}
		if conn == nil {
			break
		}
		if conn.Broken() || (p.opts.TestOnBorrow && !ping(conn)) {
			p.drop(conn)
			continue
		}
		return conn, nil
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, redis.ErrPoolTimeout.Wrap(err, "waiting for dial rate limiter")
		}
	}
	conn, err := p.opts.Dial(ctx)
	if err != nil {
		atomic.AddUint64(&p.dialErrors, 1)
		return nil, err
	}
	atomic.AddUint64(&p.dials, 1)

	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.closed {
		conn.Close()
		return nil, redis.ErrPoolClosed.NewWithNoMessage()
	}
	p.active++
	return conn, nil
}

// popIdle takes most recently returned idle connection and accounts it as active.
func (p *Pool) popIdle() (*redisconn.Conn, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.closed {
		return nil, redis.ErrPoolClosed.NewWithNoMessage()
	}
	n := len(p.idle)
	if n == 0 {
		return nil, nil
	}
	conn := p.idle[n-1]
	p.idle[n-1] = nil
	p.idle = p.idle[:n-1]
	p.active++
	return conn, nil
}

func ping(conn *redisconn.Conn) bool {
	f, err := conn.Do("PING")
	return err == nil && f.Kind == resp.KindStatus && string(f.Str) == "PONG"
}

// drop closes borrowed connection.
func (p *Pool) drop(conn *redisconn.Conn) {
	p.mutex.Lock()
	p.active--
	p.mutex.Unlock()
	atomic.AddUint64(&p.discarded, 1)
	conn.Close()
}

// Put returns borrowed connection to pool.
// Broken connection is closed, as well as connection that exceeds MaxIdle or is returned to closed pool.
// Connection should not be used after Put.
func (p *Pool) Put(conn *redisconn.Conn) {
	p.mutex.Lock()
	p.active--
	keep := !p.closed && !conn.Broken() && conn.Buffered() == 0 && len(p.idle) < p.opts.MaxIdle
	if keep {
		p.idle = append(p.idle, conn)
	}
	p.mutex.Unlock()

	if !keep {
		atomic.AddUint64(&p.discarded, 1)
		conn.Close()
	}
	p.release()
}

// Discard closes borrowed connection and frees its slot.
func (p *Pool) Discard(conn *redisconn.Conn) {
	p.drop(conn)
	p.release()
}

// Do borrows connection, executes one command and returns connection back.
func (p *Pool) Do(ctx context.Context, cmd string, args ...interface{}) (resp.Frame, error) {
	conn, err := p.Get(ctx)
	if err != nil {
		return resp.Frame{}, err
	}
	defer p.Put(conn)
	return conn.Do(cmd, args...)
}

// Close closes idle connections. Following Get fails with redis.ErrPoolClosed,
// and borrowed connections are closed when returned.
func (p *Pool) Close() error {
	p.mutex.Lock()
	if p.closed {
		p.mutex.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mutex.Unlock()

	for _, conn := range idle {
		conn.Close()
	}
	return nil
}

// Stats returns current counters.
func (p *Pool) Stats() Stats {
	p.mutex.Lock()
	st := Stats{Active: p.active, Idle: len(p.idle)}
	p.mutex.Unlock()
	st.Dials = atomic.LoadUint64(&p.dials)
	st.DialErrors = atomic.LoadUint64(&p.dialErrors)
	st.Waits = atomic.LoadUint64(&p.waits)
	st.Discarded = atomic.LoadUint64(&p.discarded)
	return st
}
