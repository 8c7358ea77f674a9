// Command peakhunger builds annualized IPC peak hunger period summaries.
//
// Usage:
//
//	peakhunger run --reference-year 2024 --years 2024,2023,2022
//	peakhunger serve
//	peakhunger validate
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/adapter/httpadapter"
	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/config"
	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/observability"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	envFile       string
	referenceYear int
	years         string
	severities    string
	backend       string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "peakhunger",
		Short:        "Annualized IPC peak hunger period summaries",
		SilenceUsage: true,
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	f.IntVar(&opts.referenceYear, "reference-year", 0, "override REFERENCE_YEAR")
	f.StringVar(&opts.years, "years", "", "override MATCH_YEARS (comma separated)")
	f.StringVar(&opts.severities, "severities", "", "override SEVERITIES (comma separated, e.g. 3+,4)")
	f.StringVar(&opts.backend, "backend", "", "override STORAGE_BACKEND (file, s3, azure)")

	root.AddCommand(newRunCmd(opts), newServeCmd(opts), newValidateCmd(opts))
	return root
}

// loadConfig reads the dotenv file (if present), the environment and then
// applies flag overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", o.envFile, err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := o.apply(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (o *rootOptions) apply(cfg *config.Config) error {
	if o.referenceYear != 0 {
		cfg.ReferenceYear = o.referenceYear
	}
	if o.years != "" {
		years, err := config.ParseYears(o.years)
		if err != nil {
			return fmt.Errorf("invalid --years: %w", err)
		}
		cfg.MatchYears = years
	}
	if o.severities != "" {
		cfg.Severities = config.SplitList(o.severities)
	}
	if o.backend != "" {
		cfg.StorageBackend = strings.ToLower(strings.TrimSpace(o.backend))
	}
	return nil
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Compute and write the summaries once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger := observability.NewLogger(cfg)
			metrics := observability.NewMetrics()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := build(ctx, cfg, logger, metrics)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.pipeline.Run(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run on SCHEDULE and expose health, status and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger := observability.NewLogger(cfg)
			metrics := observability.NewMetrics()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := build(ctx, cfg, logger, metrics)
			if err != nil {
				return err
			}
			defer a.close()

			srv := httpadapter.NewServer(cfg.HTTPAddr, a.pipeline, a.pipeline, logger)

			// Start HTTP server.
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server error", "error", err)
					stop()
				}
			}()

			// Start scheduled runs, the first one immediately.
			schedErr := make(chan error, 1)
			go func() {
				schedErr <- a.pipeline.RunScheduled(ctx, cfg.Schedule, true)
			}()

			var runErr error
			select {
			case <-ctx.Done():
			case runErr = <-schedErr:
			}
			logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}

			logger.Info("shutdown complete")
			return runErr
		},
	}
}
