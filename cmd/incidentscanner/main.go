package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"IncidentScanner/internal/app"
	"IncidentScanner/internal/config"
	"IncidentScanner/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "incidentscanner",
		Short:         "Detect upload incidents against source characterization vectors",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd(), serveCmd())
	return root
}

func runCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process a single execution day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			day := time.Now().UTC()
			if date != "" {
				parsed, err := time.Parse(time.DateOnly, date)
				if err != nil {
					return fmt.Errorf("parse --date: %w", err)
				}
				day = parsed
			}

			application, logger, err := build(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			summary, err := application.Run(cmd.Context(), day)
			if err != nil {
				logger.Error("run failed", "error", err)
				return err
			}
			logger.Info("run complete",
				"run_id", summary.RunID,
				"date", summary.Date,
				"anomalies", summary.AnomalyCount,
				"urgent", summary.UrgentCount,
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "execution day in YYYY-MM-DD (UTC); defaults to today")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline every day at the configured time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, logger, err := build(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.Serve(cmd.Context()); err != nil {
				logger.Error("application stopped", "error", err)
				return err
			}
			return nil
		},
	}
}

func build(ctx context.Context) (*app.Application, *slog.Logger, error) {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init application: %w", err)
	}
	return application, logger, nil
}
