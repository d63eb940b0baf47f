// Command respipe sends commands to redis server through respipe connection.
//
// It pipelines commands read from stdin, wraps them into MULTI/EXEC,
// listens subscriptions and runs simple load with connection pool.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
