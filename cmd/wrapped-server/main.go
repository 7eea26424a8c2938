package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AppleLamps/x-wrapped/internal/analyze"
	"github.com/AppleLamps/x-wrapped/internal/api"
	"github.com/AppleLamps/x-wrapped/internal/config"
	"github.com/AppleLamps/x-wrapped/internal/llm"
	"github.com/AppleLamps/x-wrapped/internal/relay"

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
		Use:           "wrapped-server",
		Short:         "wrapped-server - streaming X Wrapped analysis API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd)
			if err != nil {
				return err
			}

			logger := buildLogger(cfg.Verbose)
			defer func() { _ = logger.Sync() }()

			router := api.NewRouter(logger)

			if cfg.BackendURL != "" {
				relay.NewHandler(cfg.BackendURL, logger).Register(router)
				logger.Info("relaying to backend", zap.String("backend_url", cfg.BackendURL))
			} else {
				apiKey := os.Getenv("XAI_API_KEY")
				mockMode := os.Getenv("WRAPPED_MOCK_LLM") == "1"
				if apiKey == "" && !mockMode {
					fmt.Fprintln(os.Stderr, "XAI_API_KEY is required")
					os.Exit(2)
				}
				var client llm.Client
				if mockMode {
					client = llm.NewMockClient()
				} else {
					client = llm.NewGrokClient(apiKey, cfg.LLMBaseURL)
				}
				analyze.NewHandler(client, cfg.Model, logger).Register(router)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			srv := &http.Server{
				Addr:              cfg.ListenAddr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening", zap.String("addr", cfg.ListenAddr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
				logger.Info("shutting down")
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().String("listen", config.DefaultListenAddr, "Listen address")
	cmd.Flags().String("backend", "", "Relay to this backend URL instead of running the analyzer")
	cmd.Flags().String("model", config.DefaultModel, "Model name")
	cmd.Flags().String("llm-base-url", config.DefaultLLMBaseURL, "LLM API base URL")
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
