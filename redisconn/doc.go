/*
Package redisconn implements a session with single redis server.

Conn wraps single tcp (or unix-socket) connection together with buffered RESP reader and writer.
Requests are buffered by Send and transmitted by Flush; replies are read one by one with Receive
in the order requests were sent. Conn is not safe for concurrent use except for Err, Broken,
Invalidate and Close: it is meant to be owned by single caller (pipeline.Pipeline, pubsub.Subscriber
or redispool user).

Redis error replies are returned as frames of resp.KindError and do not affect connection.
Any io or protocol error makes connection broken: it is remembered, underlying socket is closed,
and every following call fails with the same error. Broken connection should be discarded.

Connect performs handshake: AUTH (if Password is set), PING and SELECT (if DB is not zero).

	conn, err := redisconn.Connect(ctx, "127.0.0.1:6379", redisconn.Opts{DB: 1})
	if err != nil {
		return err
	}
	defer conn.Close()
	frame, err := conn.Do("GET", "key")
*/
package redisconn
