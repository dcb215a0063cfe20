package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/innerline/local-ai-packaged/internal/bootstrap"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "interrupted")
			return bootstrap.ExitInterrupt
		}

		var pErr *bootstrap.Error
		if errors.As(err, &pErr) {
			// Already reported through the pipeline's logger.
			return pErr.ExitCode
		}

		fmt.Fprintln(os.Stderr, "error:", err)
		return bootstrap.ExitConfig
	}

	return bootstrap.ExitSuccess
}
