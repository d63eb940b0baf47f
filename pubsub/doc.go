/*
Package pubsub implements subscription mode of redis connection.

Subscriber.Listen sends SUBSCRIBE and then reads push messages until number of subscriptions
drops to zero, dispatching them to Handler. Subscribe, Unsubscribe, PSubscribe and PUnsubscribe
could be called from handler callbacks or from other goroutines while Listen runs.

	type printer struct{ pubsub.NopHandler }

	func (printer) OnMessage(channel string, msg []byte) {
		fmt.Printf("%s: %s\n", channel, msg)
	}

	sub := pubsub.NewSubscriber(printer{})
	go func() {
		time.Sleep(time.Minute)
		sub.Unsubscribe()
	}()
	err := sub.Listen(conn, "news", "weather")

After Listen returns without error connection is back to normal mode and could be reused.
*/
package pubsub
