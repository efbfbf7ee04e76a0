// Package main is the entry point for the stagehand CLI.
//
// stagehand brings up a local kind or minikube cluster running ArgoCD and a
// Backstage application. Every step is checked before it is applied, retried
// on transient failures and gated on pod readiness, so repeated runs converge
// instead of failing.
//
// Commands: init, up, status, down, doctor.
//
// For detailed usage information, run:
//
//	stagehand --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/stagehand/cmd/stagehand/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
