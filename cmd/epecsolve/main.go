// SPDX-License-Identifier: MIT

// Command epecsolve loads an EPEC instance, runs the coordinator and writes
// a YAML report.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// version is overridden at link time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "epecsolve:", err)
		stop()
		os.Exit(1)
	}
}
