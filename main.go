// linechat - a terminal client for line-protocol chat servers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"linechat/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "linechat: %v\n", err)
		os.Exit(1)
	}
}
