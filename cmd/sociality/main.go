// ABOUTME: Entry point for the sociality binary.
// ABOUTME: Executes the root Cobra command and prints errors with login hints.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/2389-research/sociality/internal/api"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if api.IsUnauthorized(err) {
			fmt.Fprintln(os.Stderr, "Your session was rejected. Run 'sociality login' to sign in again.")
		}
		os.Exit(1)
	}
}
