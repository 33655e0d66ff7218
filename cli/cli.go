// Package cli is the trackside command line.
//
//	trackside serve              run the sidecar on the configured socket
//	trackside plan --turn 31     evaluate the racing plan offline
//	trackside plan set -f FILE   replace the racing plan
//	trackside catalog import -f  load race data into the catalog
//	trackside catalog list       print catalog races in a turn range
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nstehr/trackside/trackside-core/config"
	"github.com/nstehr/trackside/trackside-core/storage/sqlite"
)

// BuildCLI assembles the root command and its subcommands.
func BuildCLI() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "trackside",
		Short: "Trackside: career automation sidecar",
		Long: `Trackside decides what a career-mode trainee does each turn:
- campaign-specific screens and tutorials
- racing plan evaluation
- training event choices`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (defaults and TRACKSIDE_ env when empty)")

	load := func() (config.Config, error) {
		cfg, err := config.Load(configFile)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}

	rootCmd.AddCommand(buildServeCommand(load))
	rootCmd.AddCommand(buildPlanCommand(load))
	rootCmd.AddCommand(buildCatalogCommand(load))

	return rootCmd
}

type configLoader func() (config.Config, error)

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// withStore loads the config, opens its database and runs fn.
func withStore(ctx context.Context, load configLoader, fn func(config.Config, *sqlite.Store) error) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	store, err := sqlite.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, store)
}
