package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	httpadapter "github.com/Moutron/home-maintenance-app-sub001/internal/adapter/http"
	"github.com/Moutron/home-maintenance-app-sub001/internal/config"
	"github.com/Moutron/home-maintenance-app-sub001/internal/domain"
	"github.com/Moutron/home-maintenance-app-sub001/internal/observability"
	"github.com/Moutron/home-maintenance-app-sub001/internal/pipeline"
	"github.com/spf13/cobra"
)

// processMetrics registers the collectors once per process.
var processMetrics = sync.OnceValue(observability.NewMetrics)

func main() {
	root := &cobra.Command{
		Use:           "propertyd",
		Short:         "Property data enrichment service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), enrichCmd(), statsCmd(), sweepCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background cache sweeper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	logger := observability.NewLogger(cfg)
	metrics := processMetrics()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, a.pipeline, logger)
	sweeper := pipeline.NewSweeper(a.pipeline, cfg.CacheSweepInterval, nil, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	go func() {
		if err := sweeper.Run(ctx); err != nil {
			logger.Error("cache sweeper error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := a.Close(); err != nil {
		logger.Error("resource close error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

type enrichFlags struct {
	addr      domain.Address
	inventory bool
}

func enrichCmd() *cobra.Command {
	var flags enrichFlags
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Enrich one address and print the profile as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flags.addr.Validate(); err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				profile := a.pipeline.Enrich(ctx, flags.addr)
				if !flags.inventory {
					return writeJSON(cmd.OutOrStdout(), profile)
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"profile":   profile,
					"inventory": domain.SeedInventory(profile, nil),
				})
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.addr.Street, "address", "", "Street address")
	f.StringVar(&flags.addr.City, "city", "", "City")
	f.StringVar(&flags.addr.State, "state", "", "Two-letter state code")
	f.StringVar(&flags.addr.ZipCode, "zip", "", "ZIP code")
	f.BoolVar(&flags.inventory, "inventory", false, "Also print seeded systems and appliances")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print total, expired and valid entry counts per cache family",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				stats, err := a.pipeline.CacheStats(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), stats)
			})
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired cache entries once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				removed, err := a.pipeline.SweepCaches(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), removed)
			})
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the cache schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := observability.NewStderrLogger(cfg)
			backend, err := openBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			return backend.Close()
		},
	}
}

// withApp runs fn against a fully wired app whose logs go to stderr.
func withApp(parent context.Context, fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewStderrLogger(cfg)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, processMetrics())
	if err != nil {
		return err
	}
	runErr := fn(ctx, a)
	if err := a.Close(); err != nil {
		logger.Error("resource close error", "error", err)
	}
	return runErr
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
