package pubsub

import (
	"sync"
	"time"

	"github.com/joomcode/respipe/redis"
	"github.com/joomcode/respipe/redisconn"
	"github.com/joomcode/respipe/resp"
)

// Subscriber dispatches push messages of subscribed connection to Handler.
type Subscriber struct {
	h Handler

	// mutex serializes writes to connection and guards conn and count.
	mutex sync.Mutex
	conn  *redisconn.Conn
	count int
}

// NewSubscriber returns subscriber with handler.
func NewSubscriber(h Handler) *Subscriber {
	if h == nil {
		h = NopHandler{}
	}
	return &Subscriber{h: h}
}

// Listen subscribes to channels and runs dispatch loop until all subscriptions are cancelled.
//
// Returned error is fatal for connection: it is either io error, or unexpected message
// (redis.ErrPubSubMessage) after which connection is invalidated.
// IO timeout of connection is disabled while loop is running.
func (s *Subscriber) Listen(conn *redisconn.Conn, channels ...string) error {
	return s.listen(conn, "SUBSCRIBE", channels)
}

// ListenPatterns subscribes to patterns and runs dispatch loop like Listen.
func (s *Subscriber) ListenPatterns(conn *redisconn.Conn, patterns ...string) error {
	return s.listen(conn, "PSUBSCRIBE", patterns)
}

func (s *Subscriber) listen(conn *redisconn.Conn, cmd string, names []string) error {
	if len(names) == 0 {
		return redis.ErrNoChannels.New("%s requires at least one channel", cmd)
	}
	timeout, err := s.attach(conn, cmd, names)
	if err != nil {
		return err
	}
	defer s.detach(timeout)

	for {
		f, err := conn.Receive()
		if err != nil {
			return err
		}
		if err = s.dispatch(f); err != nil {
			return conn.Invalidate(err)
		}
		if s.Count() == 0 {
			return nil
		}
	}
}

func (s *Subscriber) attach(conn *redisconn.Conn, cmd string, names []string) (time.Duration, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.conn != nil {
		return 0, redis.ErrAlreadyListening.New("subscriber is already listening").
			WithProperty(redis.EKConnection, s.conn.Addr())
	}
	timeout := conn.IOTimeout()
	conn.SetIOTimeout(0)
	s.conn = conn
	s.count = 0
	if err := s.send(cmd, names); err != nil {
		s.conn = nil
		conn.SetIOTimeout(timeout)
		return 0, err
	}
	return timeout, nil
}

func (s *Subscriber) detach(timeout time.Duration) {
	s.mutex.Lock()
	conn := s.conn
	s.conn = nil
	s.count = 0
	s.mutex.Unlock()
	conn.SetIOTimeout(timeout)
}

// send writes and flushes command. Mutex should be held.
func (s *Subscriber) send(cmd string, names []string) error {
	args := make([]interface{}, len(names))
	for i, n := range names {
		args[i] = n
	}
	if err := s.conn.Send(cmd, args...); err != nil {
		return err
	}
	return s.conn.Flush()
}

func (s *Subscriber) command(cmd string, names []string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.conn == nil {
		return redis.ErrNotSubscribed.New("subscriber is not listening")
	}
	return s.send(cmd, names)
}

// Subscribe adds channels to subscription.
func (s *Subscriber) Subscribe(channels ...string) error {
	if len(channels) == 0 {
		return redis.ErrNoChannels.New("SUBSCRIBE requires at least one channel")
	}
	return s.command("SUBSCRIBE", channels)
}

// Unsubscribe cancels subscription to channels, or to all channels if none given.
func (s *Subscriber) Unsubscribe(channels ...string) error {
	return s.command("UNSUBSCRIBE", channels)
}

// PSubscribe adds patterns to subscription.
func (s *Subscriber) PSubscribe(patterns ...string) error {
	if len(patterns) == 0 {
		return redis.ErrNoChannels.New("PSUBSCRIBE requires at least one pattern")
	}
	return s.command("PSUBSCRIBE", patterns)
}

// PUnsubscribe cancels subscription to patterns, or to all patterns if none given.
func (s *Subscriber) PUnsubscribe(patterns ...string) error {
	return s.command("PUNSUBSCRIBE", patterns)
}

// Ping sends PING in subscription mode. Reply is delivered to PongHandler if handler implements it.
func (s *Subscriber) Ping(data ...string) error {
	if len(data) > 1 {
		data = data[:1]
	}
	return s.command("PING", data)
}

// Count returns number of active subscriptions (channels and patterns).
func (s *Subscriber) Count() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.count
}

// IsSubscribed reports whether Listen is running.
func (s *Subscriber) IsSubscribed() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.conn != nil
}

func (s *Subscriber) setCount(n int64) {
	s.mutex.Lock()
	s.count = int(n)
	s.mutex.Unlock()
}

type dispatcher func(s *Subscriber, items []resp.Frame) bool

var dispatchers = map[string]dispatcher{
	"subscribe": func(s *Subscriber, items []resp.Frame) bool {
		return s.countEvent(items, s.h.OnSubscribe)
	},
	"unsubscribe": func(s *Subscriber, items []resp.Frame) bool {
		return s.countEvent(items, s.h.OnUnsubscribe)
	},
	"psubscribe": func(s *Subscriber, items []resp.Frame) bool {
		return s.countEvent(items, s.h.OnPSubscribe)
	},
	"punsubscribe": func(s *Subscriber, items []resp.Frame) bool {
		return s.countEvent(items, s.h.OnPUnsubscribe)
	},
	"message": func(s *Subscriber, items []resp.Frame) bool {
		if len(items) != 3 || !isBulk(items[1]) || !isBulk(items[2]) {
			return false
		}
		s.h.OnMessage(string(items[1].Str), items[2].Str)
		return true
	},
	"pmessage": func(s *Subscriber, items []resp.Frame) bool {
		if len(items) != 4 || !isBulk(items[1]) || !isBulk(items[2]) || !isBulk(items[3]) {
			return false
		}
		s.h.OnPMessage(string(items[1].Str), string(items[2].Str), items[3].Str)
		return true
	},
	"pong": func(s *Subscriber, items []resp.Frame) bool {
		if len(items) != 2 || !isBulk(items[1]) {
			return false
		}
		if ph, ok := s.h.(PongHandler); ok {
			ph.OnPong(items[1].Str)
		}
		return true
	},
}

func isBulk(f resp.Frame) bool {
	return f.Kind == resp.KindBulk && !f.Null
}

// countEvent handles subscription confirmation: [kind, name, count].
// Name is nil when unsubscribing from all channels without active subscriptions.
func (s *Subscriber) countEvent(items []resp.Frame, cb func(string, int)) bool {
	if len(items) != 3 || items[1].Kind != resp.KindBulk || items[2].Kind != resp.KindInteger {
		return false
	}
	s.setCount(items[2].Int)
	cb(string(items[1].Str), int(items[2].Int))
	return true
}

func (s *Subscriber) dispatch(f resp.Frame) error {
	if f.IsError() {
		return redis.ErrPubSubMessage.Wrap(f.Err, "error reply in subscription mode")
	}
	if f.Kind == resp.KindArray && !f.Null && len(f.Array) > 0 && isBulk(f.Array[0]) {
		if d := dispatchers[string(f.Array[0].Str)]; d != nil && d(s, f.Array) {
			return nil
		}
	}
	return redis.ErrPubSubMessage.New("unexpected message in subscription mode").
		WithProperty(redis.EKResponse, f.String())
}
