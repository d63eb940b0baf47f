/*
Package redispool implements borrow/return pool of redisconn.Conn.

Connection is borrowed with Get and returned with Put. Broken connections
(redisconn.Conn.Broken) are closed on return instead of being kept idle,
so a connection left in unknown state by failed Sync or subscription loop
is never handed out again.

	pool, err := redispool.New(redispool.Opts{
		Dial: func(ctx context.Context) (*redisconn.Conn, error) {
			return redisconn.Connect(ctx, "127.0.0.1:6379", redisconn.Opts{})
		},
		MaxActive: 16,
	})
	conn, err := pool.Get(ctx)
	if err != nil {
		return err
	}
	defer pool.Put(conn)

Pool statistics are exported to Prometheus with NewCollector.
*/
package redispool
