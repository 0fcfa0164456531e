// Command mailpat compiles and runs mail search patterns.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/roach88/mailpat/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
