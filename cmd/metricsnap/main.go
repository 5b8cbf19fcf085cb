// Command metricsnap fetches, queries and compares metric snapshots served
// by a monitor server or stored in files.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

var exit = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exit(code)
}
