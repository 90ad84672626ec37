// Command daybook is the command-line client for the daybook journal service.
//
// Usage:
//
//	# Log in with an authorization code
//	daybook login <code>
//
//	# Write today's entry
//	daybook write --title "A good day" --mood good --weather sunny < entry.txt
//
//	# Open the entry for a date, or learn that it does not exist yet
//	daybook open 2024-03-01
//
//	# Run the in-memory backend locally
//	daybook devserver
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
