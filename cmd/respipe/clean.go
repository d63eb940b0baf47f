package main

import (
	"errors"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/joomcode/respipe/pipeline"
	"github.com/joomcode/respipe/redisconn"
)

func cleanCommand() *cli.Command {
	return &cli.Command{
		Name:  "clean",
		Usage: "delete keys matching pattern, scanning keyspace in batches",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "match", Usage: "match expression of keys to delete (required)"},
			&cli.IntFlag{Name: "count", Value: 1000, Usage: "COUNT hint of SCAN"},
			&cli.DurationFlag{Name: "sleep", Value: 50 * time.Millisecond, Usage: "sleep between batches"},
			&cli.BoolFlag{Name: "dry-run", Usage: "print keys without deleting"},
		},
		Action: withConn(func(c *cli.Context, s *session, conn *redisconn.Conn) error {
			if c.String("match") == "" {
				return errors.New("match should be specified and not empty")
			}
			res, err := clean(conn, cleanOpts{
				match:  c.String("match"),
				count:  c.Int("count"),
				sleep:  c.Duration("sleep"),
				dryRun: c.Bool("dry-run"),
			})
			if err != nil {
				return err
			}
			return s.out.PrintValue(res)
		}),
	}
}

type cleanOpts struct {
	match  string
	count  int
	sleep  time.Duration
	dryRun bool
}

type cleanResult struct {
	Scanned int      `json:"scanned" yaml:"scanned"`
	Deleted int64    `json:"deleted" yaml:"deleted"`
	Keys    []string `json:"keys,omitempty" yaml:"keys,omitempty"`
}

func clean(conn *redisconn.Conn, opts cleanOpts) (cleanResult, error) {
	var res cleanResult
	p := pipeline.New(conn)
	cursor := "0"
	for {
		scan := pipeline.Enqueue(p, pipeline.Scan, "SCAN", cursor, "MATCH", opts.match, "COUNT", opts.count)
		if err := p.Sync(); err != nil {
			return res, err
		}
		page, err := scan.Value()
		if err != nil {
			return res, err
		}
		res.Scanned += len(page.Keys)
		if opts.dryRun {
			res.Keys = append(res.Keys, page.Keys...)
		} else if len(page.Keys) > 0 {
			dels := make([]*pipeline.Future[int64], len(page.Keys))
			for i, key := range page.Keys {
				dels[i] = pipeline.Enqueue(p, pipeline.Int64, "DEL", key)
			}
			if err := p.Sync(); err != nil {
				return res, err
			}
			for _, del := range dels {
				n, err := del.Value()
				if err != nil {
					return res, err
				}
				res.Deleted += n
			}
		}
		cursor = page.Cursor
		if cursor == "0" {
			return res, nil
		}
		if opts.sleep > 0 {
			time.Sleep(opts.sleep)
		}
	}
}
