package redisconn

import (
	"context"
	"os"

	"github.com/rs/zerolog"
)

// Logger is used for logging connection lifetime events.
type Logger interface {
	// Report will be called when some events happens during connection's lifetime.
	// Default implementation writes them with zerolog.
	Report(conn *Conn, event LogEvent)
}

func (conn *Conn) report(event LogEvent) {
	conn.opts.Logger.Report(conn, event)
}

// LogEvent is a sumtype for events to be logged.
type LogEvent interface {
	logEvent()
}

// LogConnecting is an event logged when Connect starts dialing.
type LogConnecting struct{}

// LogConnected is logged when connection established and handshake passed.
type LogConnected struct {
	LocalAddr  string // - local ip:port
	RemoteAddr string // - remote ip:port
}

// LogConnectFailed is logged when connection establishing or handshake failed.
type LogConnectFailed struct {
	Error error // - failure reason
}

// LogBroken is logged when connection becomes unusable because of io or protocol error.
type LogBroken struct {
	Error error // - breaking error
}

// LogClosed is logged when connection were explicitly closed.
type LogClosed struct{}

func (LogConnecting) logEvent()    {}
func (LogConnected) logEvent()     {}
func (LogConnectFailed) logEvent() {}
func (LogBroken) logEvent()        {}
func (LogClosed) logEvent()        {}

// ZerologLogger writes events into zerolog.Logger.
type ZerologLogger struct {
	Logger zerolog.Logger
}

// DefaultLogger returns ZerologLogger that uses logger attached to context,
// or logger writing to stderr if context has none.
func DefaultLogger(ctx context.Context) ZerologLogger {
	if ctx != nil {
		if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
			return ZerologLogger{Logger: *l}
		}
	}
	return ZerologLogger{Logger: zerolog.New(os.Stderr).With().Timestamp().Logger()}
}

// Report implements Logger.Report.
func (z ZerologLogger) Report(conn *Conn, event LogEvent) {
	switch ev := event.(type) {
	case LogConnecting:
		z.Logger.Debug().Str("addr", conn.Addr()).Msg("redis: connecting")
	case LogConnected:
		z.Logger.Info().
			Str("addr", conn.Addr()).
			Str("local_addr", ev.LocalAddr).
			Str("remote_addr", ev.RemoteAddr).
			Msg("redis: connected")
	case LogConnectFailed:
		z.Logger.Error().Err(ev.Error).Str("addr", conn.Addr()).Msg("redis: connection failed")
	case LogBroken:
		z.Logger.Warn().Err(ev.Error).Str("addr", conn.Addr()).Msg("redis: connection broken")
	case LogClosed:
		z.Logger.Debug().Str("addr", conn.Addr()).Msg("redis: connection closed")
	default:
		z.Logger.Warn().Str("addr", conn.Addr()).Interface("event", event).Msg("redis: unexpected event")
	}
}

// NoopLogger discards all events.
type NoopLogger struct{}

// Report implements Logger.Report.
func (NoopLogger) Report(*Conn, LogEvent) {}
