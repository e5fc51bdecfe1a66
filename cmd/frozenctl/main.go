// Command frozenctl checks column spec files and looks into frozen payloads.
//
// Usage:
//
//	frozenctl validate columns.yaml
//	frozenctl inspect payload.json
//	frozenctl get -dsn postgres://... -specs columns.yaml -column address order-42
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}
