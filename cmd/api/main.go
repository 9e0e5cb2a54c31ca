package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
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

const programName = "crystalgive-api"

var (
	globalFlags = struct {
		debug bool
	}{}
	configFile string
)

// API process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring (ports + adapters + use cases).
// 3) Serve HTTP until SIGINT/SIGTERM.
func main() {
	rootCmd := &cobra.Command{
		Use:          programName,
		Short:        "Campaign escrow API",
		SilenceUsage: true,
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

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(migrateCommand())
	rootCmd.AddCommand(versionCommand())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// cobra has already printed the error
		stop()
		os.Exit(1)
	}
}

func commonRun(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return nil, nil, errors.New("no config found in context")
	}
	logger, err := logging.New(os.Stdout, programName, globalFlags.debug)
	if err != nil {
		return nil, nil, err
	}
	logger.Info(
		"version: "+version.GetVersionString(),
		"component", programName,
	)
	return cfg, logger, nil
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the escrow HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := commonRun(cmd)
			if err != nil {
				return err
			}
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

			app, err := bootstrap.BuildAPI(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("bootstrap api failed: %w", err)
			}
			defer func() {
				if err := app.Close(); err != nil {
					logger.Warn("api shutdown close failed", "error", err.Error())
				}
			}()
			return app.Run(ctx)
		},
	}
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the escrow schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := commonRun(cmd)
			if err != nil {
				return err
			}
			return bootstrap.Migrate(cmd.Context(), cfg, logger)
		},
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetVersionString())
		},
	}
}
