package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"crystalgive/internal/app/bootstrap"
	"crystalgive/internal/platform/config"
	"crystalgive/internal/platform/logging"
	"crystalgive/internal/platform/tracing"
	"crystalgive/internal/version"

	"github.com/spf13/cobra"
)

const programName = "crystalgive-worker"

var (
	globalFlags = struct {
		debug bool
	}{}
	configFile string
)

// Worker process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring.
// 3) Relay committed escrow events to the bus until SIGINT/SIGTERM.
func main() {
	rootCmd := &cobra.Command{
		Use:          programName,
		Short:        "Campaign escrow outbox relay",
		SilenceUsage: true,
		RunE:         runWorker,
	}
	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&configFile, "config", "", "path to config file")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	}
	rootCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the outbox relay",
		RunE:  runWorker,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return errors.New("no config found in context")
	}
	logger, err := logging.New(os.Stdout, programName, globalFlags.debug)
	if err != nil {
		return err
	}
	logger.Info(
		"version: "+version.GetVersionString(),
		"component", programName,
	)
	ctx := cmd.Context()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Options{
		ServiceName: cfg.ServiceName,
		Enabled:     cfg.Tracing,
		Stdout:      cfg.TracingStdout,
	})
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown failed", "error", err.Error())
		}
	}()

	app, err := bootstrap.BuildWorker(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("bootstrap worker failed: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("worker shutdown close failed", "error", err.Error())
		}
	}()
	return app.Run(ctx)
}
