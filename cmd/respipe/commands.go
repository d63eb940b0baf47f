package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joomcode/errorx"
	"github.com/urfave/cli/v2"

	"github.com/joomcode/respipe/pipeline"
	"github.com/joomcode/respipe/pubsub"
	"github.com/joomcode/respipe/redis"
	"github.com/joomcode/respipe/redisconn"
	"github.com/joomcode/respipe/resp"
)

func doCommand() *cli.Command {
	return &cli.Command{
		Name:      "do",
		Usage:     "send one command and print its reply",
		ArgsUsage: "COMMAND [ARG...]",
		Action: withConn(func(c *cli.Context, s *session, conn *redisconn.Conn) error {
			if c.NArg() == 0 {
				return errors.New("command is required")
			}
			cmd, args := splitArgs(c.Args().Slice())
			f, err := conn.Do(cmd, args...)
			if err != nil {
				return err
			}
			return s.out.Print(f)
		}),
	}
}

func pipeCommand() *cli.Command {
	return &cli.Command{
		Name:  "pipe",
		Usage: "pipeline commands read from stdin, one command per line",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "batch",
				Usage: "number of commands sent in one round trip",
				Value: 100,
			},
		},
		Action: withConn(func(c *cli.Context, s *session, conn *redisconn.Conn) error {
			batch := c.Int("batch")
			if batch <= 0 {
				batch = 1
			}
			p := pipeline.New(conn)
			var futures []*pipeline.Future[resp.Frame]
			flush := func() error {
				err := p.Sync()
				for _, f := range futures {
					if perr := s.printFuture(f); perr != nil {
						return perr
					}
				}
				futures = futures[:0]
				return err
			}
			err := scanCommands(c, func(cmd string, args []interface{}) error {
				futures = append(futures, pipeline.Enqueue(p, pipeline.Frame, cmd, args...))
				if len(futures) >= batch {
					return flush()
				}
				return nil
			})
			if err != nil {
				return err
			}
			return flush()
		}),
	}
}

func multiCommand() *cli.Command {
	return &cli.Command{
		Name:  "multi",
		Usage: "execute commands read from stdin in MULTI/EXEC transaction",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "watch",
				Usage: "keys to WATCH before transaction",
			},
		},
		Action: withConn(func(c *cli.Context, s *session, conn *redisconn.Conn) error {
			if keys := c.StringSlice("watch"); len(keys) > 0 {
				_, args := splitArgs(append([]string{"WATCH"}, keys...))
				f, err := conn.Do("WATCH", args...)
				if err != nil {
					return err
				}
				if f.IsError() {
					return f.Err
				}
			}
			tx, err := pipeline.Begin(conn)
			if err != nil {
				return err
			}
			var futures []*pipeline.Future[resp.Frame]
			err = scanCommands(c, func(cmd string, args []interface{}) error {
				futures = append(futures, pipeline.Enqueue(tx.Pipeline(), pipeline.Frame, cmd, args...))
				return nil
			})
			if err != nil {
				tx.Discard()
				return err
			}
			if _, err = tx.Exec(); err != nil {
				if errorx.IsOfType(err, redis.ErrExecAborted) {
					return s.out.Print(resp.NullArray())
				}
				return err
			}
			for _, f := range futures {
				if err := s.printFuture(f); err != nil {
					return err
				}
			}
			return nil
		}),
	}
}

func subscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Usage:     "subscribe to channels and print messages until interrupted",
		ArgsUsage: "CHANNEL [CHANNEL...]",
		Action: withConn(func(c *cli.Context, s *session, conn *redisconn.Conn) error {
			return s.listen(conn, c.Args().Slice(), false)
		}),
	}
}

func psubscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "psubscribe",
		Usage:     "subscribe to patterns and print messages until interrupted",
		ArgsUsage: "PATTERN [PATTERN...]",
		Action: withConn(func(c *cli.Context, s *session, conn *redisconn.Conn) error {
			return s.listen(conn, c.Args().Slice(), true)
		}),
	}
}

func (s *session) listen(conn *redisconn.Conn, names []string, patterns bool) error {
	h := &printHandler{out: s.out}
	sub := pubsub.NewSubscriber(h)

	ctx, stop := signal.NotifyContext(s.ctx, os.Interrupt)
	defer stop()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		// interrupt may come before subscriber is attached to connection
		tick := time.NewTicker(10 * time.Millisecond)
		defer tick.Stop()
		for {
			var err error
			if patterns {
				err = sub.PUnsubscribe()
			} else {
				err = sub.Unsubscribe()
			}
			if !errorx.IsOfType(err, redis.ErrNotSubscribed) {
				return
			}
			select {
			case <-tick.C:
			case <-done:
				return
			}
		}
	}()

	var err error
	if patterns {
		err = sub.ListenPatterns(conn, names...)
	} else {
		err = sub.Listen(conn, names...)
	}
	if err != nil {
		return err
	}
	return h.err
}

// withConn loads configuration, connects and closes connection after action.
func withConn(action func(c *cli.Context, s *session, conn *redisconn.Conn) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		s, err := newSession(c)
		if err != nil {
			return err
		}
		conn, err := s.connect()
		if err != nil {
			return err
		}
		defer conn.Close()
		return action(c, s, conn)
	}
}

// printFuture prints reply of command. Error reply is printed, other errors are returned.
func (s *session) printFuture(f *pipeline.Future[resp.Frame]) error {
	frame, err := f.Value()
	if err != nil {
		rerr := errorx.Cast(err)
		if rerr == nil || !rerr.IsOfType(redis.ErrResult) {
			return err
		}
		frame = resp.ErrorFrame(rerr)
	}
	return s.out.Print(frame)
}

// scanCommands calls fn for every non-empty line of stdin.
func scanCommands(c *cli.Context, fn func(cmd string, args []interface{}) error) error {
	sc := bufio.NewScanner(c.App.Reader)
	sc.Buffer(make([]byte, 64*1024), 512*1024*1024)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := splitArgs(fields)
		if err := fn(cmd, args); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read commands: %w", err)
	}
	return nil
}

func splitArgs(fields []string) (string, []interface{}) {
	args := make([]interface{}, len(fields)-1)
	for i, f := range fields[1:] {
		args[i] = f
	}
	return fields[0], args
}

// printHandler prints push messages as arrays, the way they are received.
type printHandler struct {
	out printer
	err error
}

func (h *printHandler) print(items ...resp.Frame) {
	if h.err == nil {
		h.err = h.out.Print(resp.Array(items...))
	}
}

func bulk(s string) resp.Frame {
	return resp.Bulk([]byte(s))
}

func (h *printHandler) OnMessage(channel string, message []byte) {
	h.print(bulk("message"), bulk(channel), resp.Bulk(message))
}

func (h *printHandler) OnPMessage(pattern, channel string, message []byte) {
	h.print(bulk("pmessage"), bulk(pattern), bulk(channel), resp.Bulk(message))
}

func (h *printHandler) OnSubscribe(channel string, count int) {
	h.print(bulk("subscribe"), bulk(channel), resp.Integer(int64(count)))
}

func (h *printHandler) OnUnsubscribe(channel string, count int) {
	h.print(bulk("unsubscribe"), bulk(channel), resp.Integer(int64(count)))
}

func (h *printHandler) OnPSubscribe(pattern string, count int) {
	h.print(bulk("psubscribe"), bulk(pattern), resp.Integer(int64(count)))
}

func (h *printHandler) OnPUnsubscribe(pattern string, count int) {
	h.print(bulk("punsubscribe"), bulk(pattern), resp.Integer(int64(count)))
}
