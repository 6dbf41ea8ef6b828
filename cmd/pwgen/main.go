package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hxhippy/pwgen/cli"
	"github.com/hxhippy/pwgen/genericclioptions"
)

// Version is overridden at build time via -ldflags.
var Version = "0.0.0"

func main() {
	cli.Version = Version

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := cli.NewCmdRoot(genericclioptions.NewDefaultIOStreams(), os.Args[1:])

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
