// cmd/pipelinectl/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"recruit-workers/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCommand(nil)
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
