// Package main provides the meetsync command-line entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sidn405/ai-meeting-notes-sub000/internal/cli"
	"github.com/sidn405/ai-meeting-notes-sub000/internal/errors"
)

// Version is set at build time
var Version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := cli.DefaultDependencies(Version)
	defer deps.Close()

	return cli.NewRootCmd(deps).ExecuteContext(ctx)
}

// formatError prefixes backend and cache failures with their user-facing message.
func formatError(err error) string {
	if errors.CodeOf(err) == errors.ErrInternal {
		return "Error: " + err.Error()
	}
	return fmt.Sprintf("Error: %s (%s)", errors.UserMessage(err), err.Error())
}
