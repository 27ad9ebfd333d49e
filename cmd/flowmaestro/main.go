package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nbaghiro/flowmaestro/internal/api"
	"github.com/nbaghiro/flowmaestro/internal/cli"
)

func main() {
	os.Exit(run())
}

// run executes the root command with signal-driven cancellation and maps
// the outcome to an exit code.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(api.Version)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
