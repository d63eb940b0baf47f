package pubsub

// Handler receives messages and subscription events.
// Callbacks are called from goroutine running Subscriber.Listen.
type Handler interface {
	// OnMessage is called for message published to subscribed channel.
	OnMessage(channel string, message []byte)
	// OnPMessage is called for message published to channel matching subscribed pattern.
	OnPMessage(pattern string, channel string, message []byte)
	// OnSubscribe is called when subscription is confirmed. Count is number of active subscriptions.
	OnSubscribe(channel string, count int)
	// OnUnsubscribe is called when unsubscription is confirmed.
	OnUnsubscribe(channel string, count int)
	// OnPSubscribe is called when pattern subscription is confirmed.
	OnPSubscribe(pattern string, count int)
	// OnPUnsubscribe is called when pattern unsubscription is confirmed.
	OnPUnsubscribe(pattern string, count int)
}

// PongHandler could be implemented by Handler to receive replies to Subscriber.Ping.
type PongHandler interface {
	OnPong(data []byte)
}

// NopHandler ignores everything. Embed it to implement only needed callbacks.
type NopHandler struct{}

func (NopHandler) OnMessage(string, []byte) {}
func (NopHandler) OnPMessage(string, string, []byte) {}
func (NopHandler) OnSubscribe(string, int) {}
func (NopHandler) OnUnsubscribe(string, int) {}
func (NopHandler) OnPSubscribe(string, int) {}
func (NopHandler) OnPUnsubscribe(string, int) {}
