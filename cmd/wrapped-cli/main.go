package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AppleLamps/x-wrapped/internal/config"
	"github.com/AppleLamps/x-wrapped/internal/render"
	"github.com/AppleLamps/x-wrapped/internal/session"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "wrapped-cli [username]",
		Short:         "wrapped-cli - generate an X Wrapped report from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			cfg, err := config.Load(cmd)
			if err != nil {
				return err
			}

			logger := buildLogger(cfg.Verbose)
			defer func() { _ = logger.Sync() }()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()

			consumer := session.NewConsumer(cfg.ServerURL, logger)

			if cfg.JSON {
				state, runErr := consumer.Run(ctx, username, nil)
				payload, _ := json.MarshalIndent(state, "", "  ")
				fmt.Fprintln(os.Stdout, string(payload))
				return runErr
			}

			renderer := render.NewStdoutRenderer(os.Stdout, cfg.Verbose, cfg.Quiet)
			_, runErr := consumer.Run(ctx, username, renderer.Emit)
			_ = renderer.Close()
			return runErr
		},
	}

	cmd.Flags().String("server", config.DefaultServerURL, "Wrapped server URL")
	cmd.Flags().String("timeout", config.DefaultTimeout.String(), "Timeout (e.g. 5m)")
	cmd.Flags().Bool("quiet", false, "Only print the final report")
	cmd.Flags().Bool("json", false, "Output the final session state as JSON")
	cmd.Flags().Bool("verbose", false, "Enable verbose logging")

	return cmd
}

func buildLogger(verbose bool) *zap.Logger {
	if verbose {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}
