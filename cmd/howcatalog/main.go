// howcatalog server and command line client
// Serves the content-addressed standards catalog over gRPC and REST
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nainya/howcatalog/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
