package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ruuvi-gateway/internal/app"
	"ruuvi-gateway/internal/ble"
	"ruuvi-gateway/internal/config"
	"ruuvi-gateway/internal/logging"
)

var version = "dev"
var appName = "ruuvi-gateway"

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(cfg, logger).ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "err", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(cfg config.Config, logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Read RuuviTag sensors over Bluetooth LE and forward their measurements",
		Version:      version,
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(cfg, logger), newScanCmd(cfg, logger))
	return root
}

func newRunCmd(cfg config.Config, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Listen continuously and write readings to the enabled sinks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger.Info("starting",
				"app", appName,
				"version", version,
				"env", cfg.AppEnv,
				"log_level", cfg.LogLevel.String(),
			)
			err := app.Run(cmd.Context(), cfg, logger)
			logger.Info("shutting down")
			return err
		},
	}
	cmd.Flags().StringVar(&cfg.BLEAdapter, "adapter", cfg.BLEAdapter, "bluetooth adapter name")
	return cmd
}

func newScanCmd(cfg config.Config, logger *slog.Logger) *cobra.Command {
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "scan [adapter]",
		Short: "Scan once and print every device found, with RuuviTag readings as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter := ""
			if len(args) == 1 {
				adapter = args[0]
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n\n", appName, version)
			return app.Scan(cmd.Context(), cmd.OutOrStdout(), ble.NewBlueZService(logger), adapter, duration, logger)
		},
	}
	cmd.Flags().DurationVarP(&duration, "duration", "d", cfg.ScanDuration, "scan window")
	return cmd
}
