package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/joomcode/respipe/redisconn"
)

// Version is set via ldflags.
var Version = "dev"

// App creates command line application.
func App() *cli.App {
	return &cli.App{
		Name:    "respipe",
		Usage:   "send commands to redis server",
		Version: Version,
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			doCommand(),
			pipeCommand(),
			multiCommand(),
			subscribeCommand(),
			psubscribeCommand(),
			benchCommand(),
			cleanCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML config file",
			EnvVars: []string{envPrefix + "CONFIG"},
		},
		&cli.StringFlag{
			Name:    "addr",
			Aliases: []string{"a"},
			Usage:   "server address: host:port, tcp://host:port, unix:///path",
		},
		&cli.IntFlag{
			Name:    "db",
			Aliases: []string{"n"},
			Usage:   "database number",
		},
		&cli.StringFlag{
			Name:  "username",
			Usage: "ACL user name",
		},
		&cli.StringFlag{
			Name:  "password",
			Usage: "password for AUTH",
		},
		&cli.DurationFlag{
			Name:  "io-timeout",
			Usage: "timeout of every read and write, negative disables it",
		},
		&cli.DurationFlag{
			Name:  "dial-timeout",
			Usage: "connect timeout",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: text, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "log connection events",
		},
	}
}

// session is a state shared by commands: merged configuration and logger bound context.
type session struct {
	cfg Config
	ctx context.Context
	out printer
}

func newSession(c *cli.Context) (*session, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	level := zerolog.WarnLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: c.App.ErrWriter, NoColor: true}).
		Level(level).With().Timestamp().Logger()
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return &session{
		cfg: cfg,
		ctx: logger.WithContext(ctx),
		out: printer{w: c.App.Writer, format: cfg.Output},
	}, nil
}

func (s *session) connect() (*redisconn.Conn, error) {
	return redisconn.Connect(s.ctx, s.cfg.Addr, s.cfg.Opts())
}
