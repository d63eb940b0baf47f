/*
Package pipeline implements command pipelining and MULTI/EXEC transactions over redisconn.Conn.

Commands are encoded into connection's buffer immediately, and typed Future is returned for every
command. Sync transmits buffered commands and reads their replies in order. Future.Value returns
result after Sync (or redis.ErrNotYetAvailable before it).

	p := pipeline.New(conn)
	set := p.Do("SET", "key", "value")
	n := pipeline.Enqueue(p, pipeline.Int64, "INCR", "counter")
	if err := p.Sync(); err != nil {
		// connection is broken, every pending future got err
	}
	cnt, err := n.Value()

Transaction is opened with Multi and closed with Exec or Discard. Commands issued inside of it
are acknowledged by redis with QUEUED, and their futures are resolved from EXEC reply:

	p.Multi()
	a := pipeline.Enqueue(p, pipeline.Int64, "INCR", "a")
	b := pipeline.Enqueue(p, pipeline.String, "GET", "b")
	exec, _ := p.Exec()
	p.Sync()
	all, err := exec.Value() // err is redis.ErrExecAborted if WATCH-ed key were changed
	av, aerr := a.Value()

Pipeline is not safe for concurrent use.
*/
package pipeline
