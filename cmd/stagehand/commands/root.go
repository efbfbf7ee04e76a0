// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"os"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	"k8s.io/klog/v2"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// debugEnv enables debug logging like --debug.
const debugEnv = "STAGEHAND_DEBUG"

// Root returns the root command for the stagehand CLI.
//
// The root command serves as the entry point and parent for all subcommands.
// It sets up logging before any subcommand runs.
func Root() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:           "stagehand",
		Short:         "Bootstrap Backstage on a local Kubernetes cluster",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger := newLogger(debug || envBool(debugEnv))
			logf.SetLogger(logger)
			klog.SetLogger(logger.WithName("client-go"))
			cmd.SetContext(logr.NewContext(cmd.Context(), logger))
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging (also "+debugEnv+"=true)")

	// Core commands
	cmd.AddCommand(Init())
	cmd.AddCommand(Up())
	cmd.AddCommand(Status())
	cmd.AddCommand(Down())
	cmd.AddCommand(Doctor())

	// Utility commands
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}

// newLogger writes to stderr so it never mixes with command output. Without
// debug only errors are logged.
func newLogger(debug bool) logr.Logger {
	opts := zap.Options{
		Development: debug,
		DestWriter:  os.Stderr,
	}
	if !debug {
		opts.Level = zapcore.ErrorLevel
	}
	return zap.New(zap.UseFlagOptions(&opts))
}

func envBool(name string) bool {
	v, err := strconv.ParseBool(os.Getenv(name))
	return err == nil && v
}
