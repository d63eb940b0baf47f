package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	"github.com/joomcode/respipe/pipeline"
	"github.com/joomcode/respipe/redisconn"
	"github.com/joomcode/respipe/redispool"
)

func benchCommand() *cli.Command {
	return &cli.Command{
		Name:      "bench",
		Usage:     "send command repeatedly from concurrent clients sharing connection pool",
		ArgsUsage: "[COMMAND [ARG...]]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "clients", Aliases: []string{"C"}, Value: 4, Usage: "number of concurrent clients"},
			&cli.IntFlag{Name: "requests", Aliases: []string{"N"}, Value: 10000, Usage: "total number of requests"},
			&cli.IntFlag{Name: "pipeline", Aliases: []string{"P"}, Value: 1, Usage: "requests per round trip"},
			&cli.Float64Flag{Name: "dial-rate", Usage: "new connections per second, 0 is unlimited"},
		},
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}
			cmd, args := "PING", []interface{}(nil)
			if c.NArg() > 0 {
				cmd, args = splitArgs(c.Args().Slice())
			}
			res, err := s.bench(benchOpts{
				clients:  c.Int("clients"),
				requests: c.Int("requests"),
				pipeline: c.Int("pipeline"),
				dialRate: rate.Limit(c.Float64("dial-rate")),
				cmd:      cmd,
				args:     args,
			})
			if err != nil {
				return err
			}
			return s.out.PrintValue(res)
		},
	}
}

type benchOpts struct {
	clients  int
	requests int
	pipeline int
	dialRate rate.Limit
	cmd      string
	args     []interface{}
}

type benchResult struct {
	Requests  int64              `json:"requests" yaml:"requests"`
	Errors    int64              `json:"errors" yaml:"errors"`
	Duration  string             `json:"duration" yaml:"duration"`
	PerSecond float64            `json:"per_second" yaml:"per_second"`
	Pool      map[string]float64 `json:"pool" yaml:"pool"`
}

func (s *session) bench(opts benchOpts) (benchResult, error) {
	if opts.clients <= 0 {
		opts.clients = 1
	}
	if opts.pipeline <= 0 {
		opts.pipeline = 1
	}
	pool, err := redispool.New(redispool.Opts{
		Dial: func(ctx context.Context) (*redisconn.Conn, error) {
			return redisconn.Connect(ctx, s.cfg.Addr, s.cfg.Opts())
		},
		MaxActive: opts.clients,
		MaxIdle:   opts.clients,
		DialRate:  opts.dialRate,
	})
	if err != nil {
		return benchResult{}, err
	}
	defer pool.Close()

	var sent, failed int64
	var firstErr error
	var errOnce sync.Once
	var wg sync.WaitGroup
	left := int64(opts.requests)
	start := time.Now()
	for i := 0; i < opts.clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				n := int64(opts.pipeline)
				if rest := atomic.AddInt64(&left, -n); rest < 0 {
					n += rest
				}
				if n <= 0 {
					return
				}
				ok, err := s.round(pool, opts, int(n))
				atomic.AddInt64(&sent, n)
				atomic.AddInt64(&failed, n-int64(ok))
				if err != nil {
					errOnce.Do(func() { firstErr = err })
					return
				}
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)
	if firstErr != nil && atomic.LoadInt64(&failed) == atomic.LoadInt64(&sent) {
		return benchResult{}, firstErr
	}

	res := benchResult{
		Requests:  sent,
		Errors:    failed,
		Duration:  elapsed.Round(time.Millisecond).String(),
		PerSecond: float64(sent) / elapsed.Seconds(),
	}
	res.Pool, err = gatherPool(pool)
	return res, err
}

// round sends n commands through one pooled connection and returns number of successful replies.
func (s *session) round(pool *redispool.Pool, opts benchOpts, n int) (int, error) {
	conn, err := pool.Get(s.ctx)
	if err != nil {
		return 0, err
	}
	defer pool.Put(conn)
	p := pipeline.New(conn)
	futures := make([]*pipeline.Future[interface{}], n)
	for i := range futures {
		futures[i] = p.Do(opts.cmd, opts.args...)
	}
	if err := p.Sync(); err != nil {
		return 0, err
	}
	ok := 0
	for _, f := range futures {
		if f.Err() == nil {
			ok++
		}
	}
	return ok, nil
}

// gatherPool collects pool metrics the way Prometheus scrape does.
func gatherPool(pool *redispool.Pool) (map[string]float64, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(redispool.NewCollector(pool, "bench")); err != nil {
		return nil, err
	}
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}
	res := make(map[string]float64, len(families))
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetGauge() != nil:
				res[mf.GetName()] = m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				res[mf.GetName()] = m.GetCounter().GetValue()
			}
		}
	}
	return res, nil
}
