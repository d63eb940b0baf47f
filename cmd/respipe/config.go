package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v2"

	"github.com/joomcode/respipe/redisconn"
)

const envPrefix = "RESPIPE_"

// Config is a connection configuration.
// Sources are applied in order: defaults, config file, environment, command line flags.
type Config struct {
	Addr        string        `koanf:"addr"`
	DB          int           `koanf:"db"`
	Username    string        `koanf:"username"`
	Password    string        `koanf:"password"`
	IOTimeout   time.Duration `koanf:"io_timeout"`
	DialTimeout time.Duration `koanf:"dial_timeout"`
	Output      string        `koanf:"output"`
	Verbose     bool          `koanf:"verbose"`
}

func defaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"addr":         "127.0.0.1:6379",
		"db":           0,
		"io_timeout":   "1s",
		"dial_timeout": "2s",
		"output":       formatText,
	}
}

// Opts converts configuration to connection options.
func (cfg Config) Opts() redisconn.Opts {
	return redisconn.Opts{
		DB:          cfg.DB,
		Username:    cfg.Username,
		Password:    cfg.Password,
		IOTimeout:   cfg.IOTimeout,
		DialTimeout: cfg.DialTimeout,
	}
}

// mapProvider provides koanf with already parsed values.
type mapProvider map[string]interface{}

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("map provider doesn't support ReadBytes")
}

func (m mapProvider) Read() (map[string]interface{}, error) {
	return m, nil
}

// envKey maps RESPIPE_IO_TIMEOUT to io_timeout.
func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, envPrefix))
}

// loadConfig merges configuration sources. Only flags explicitly set on command line override other sources.
func loadConfig(c *cli.Context) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(mapProvider(defaultConfig()), nil); err != nil {
		return Config{}, err
	}
	if path := c.String("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	flags := mapProvider{}
	for _, name := range []string{"addr", "username", "password", "output"} {
		if c.IsSet(name) {
			flags[name] = c.String(name)
		}
	}
	if c.IsSet("db") {
		flags["db"] = c.Int("db")
	}
	if c.IsSet("verbose") {
		flags["verbose"] = c.Bool("verbose")
	}
	for _, name := range []string{"io-timeout", "dial-timeout"} {
		if c.IsSet(name) {
			flags[strings.ReplaceAll(name, "-", "_")] = c.Duration(name).String()
		}
	}
	if err := k.Load(flags, nil); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	switch cfg.Output {
	case formatText, formatJSON, formatYAML:
	default:
		return Config{}, fmt.Errorf("unknown output format %q", cfg.Output)
	}
	return cfg, nil
}
