/*
Package respipe - Redis client built around explicit pipelining over single connection.

https://redis.io/topics/pipelining

Every command sent to redis is answered in order, so the client doesn't need request ids:
it is enough to remember which result waits for which reply. This connector makes that
queue explicit. Commands are buffered and results are returned as deferred values, that
become available after the whole batch is flushed and replies are read back. N commands
cost one round trip.

Capabilities

- RESP codec that distinguishes null and empty bulk strings and arrays, keeps error replies
inside of arrays isolated, and parses MOVED/ASK/CLUSTERDOWN redirections into structured errors,

- typed deferred results: pipeline.Enqueue(p, pipeline.Int64, "INCR", "counter"),

- MULTI/EXEC/DISCARD transactions: results of commands queued inside of transaction are
distributed from EXEC reply without extra round trip,

- publish/subscribe mode with callback handler,

- borrow/return pool that never hands out broken connection,

- hook for custom logging (zerolog by default).

Limitations

- Conn and Pipeline are not safe for concurrent use: one connection is one sequential stream.
Use redispool to share connections between goroutines.

- commands that switch connection into other mode (SUBSCRIBE, PSUBSCRIBE, MONITOR) are forbidden
in pipeline. Use pubsub.Subscriber for subscriptions.

- there is no cluster router: redirections are reported as errors of types redis.ErrMoved and
redis.ErrAsk, and redis.ParseRedirect extracts target node from them.

Structure

- root package is empty

- common functionality (errors, requests, key slots) is in redis subpackage

- wire codec is in resp subpackage

- single connection is in redisconn subpackage

- deferred results, pipelines and transactions are in pipeline subpackage

- subscription mode is in pubsub subpackage

- connection pool is in redispool subpackage

Usage

	conn, err := redisconn.Connect(ctx, "127.0.0.1:6379", redisconn.Opts{})
	if err != nil {
		return err
	}
	defer conn.Close()

	p := pipeline.New(conn)
	set := p.Do("SET", "key", "value")
	get := pipeline.Enqueue(p, pipeline.String, "GET", "key")
	if err := p.Sync(); err != nil {
		// connection is broken, every pending result holds the error
		return err
	}
	value, err := get.Value()

Types accepted as command arguments: nil, []byte, string, []rune, []uint16 (utf16), int
(and all other integer types), float64, float32, bool. All arguments are converted to redis
bulk strings as usual (ie string and bytes - as is; numbers - in decimal notation). bool
converted as "0/1", nil converted to empty string.

Untyped results (Pipeline.Do, Frame.Value) are de-serialized into plain go types:

  redis        | go
  -------------|-------
  plain string | string
  bulk string  | []byte
  integer      | int64
  array        | []interface{}
  error        | error (*errorx.Error)

IO, connection, and other errors are *errorx.Error as well. Errors with trait
redis.ErrTraitBroken mean connection should be discarded.
*/
package respipe
