// Package main is the entry point for oactl, the operator CLI for the OA
// metasearch index: ad hoc searches, seeding, exports and harvest control.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/oa-metasearch/internal/config"
	"github.com/helixir/oa-metasearch/internal/observability"
	"github.com/helixir/oa-metasearch/internal/search"
	"github.com/helixir/oa-metasearch/internal/search/backend"
	"github.com/helixir/oa-metasearch/internal/temporal"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	cfg    *config.Config
	logger zerolog.Logger
)

// rootCmd is the base command for oactl.
var rootCmd = &cobra.Command{
	Use:   "oactl",
	Short: "Operate the OA metasearch index",
	Long: `oactl talks to the configured search backend and Temporal cluster using
the same configuration as the server and worker (config.yaml, .env and
OASEARCH_* environment variables).`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfgFile, _ := cmd.Flags().GetString("config")
		loaded, err := config.LoadFrom(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded

		level := "warn"
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = "debug"
		}
		logger = observability.NewLogger(observability.LoggingConfig{
			Level:      level,
			Format:     "console",
			Output:     "stderr",
			TimeFormat: time.RFC3339,
		}).With().Str("component", "oactl").Logger()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./config.yaml, ./config/config.yaml or /etc/oa-metasearch/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug output to stderr")
}

// openIndex opens the configured backend. The returned func releases it.
func openIndex(ctx context.Context) (search.Adapter, func(), error) {
	backendCfg, err := backend.Resolve(cfg.Search, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve search backend: %w", err)
	}
	index, closeFn, err := backend.New(ctx, backendCfg, backend.Deps{Logger: logger})
	if err != nil {
		return nil, nil, fmt.Errorf("open search backend: %w", err)
	}
	return index, closeFn, nil
}

// dialHarvest connects to Temporal and checks its health. Callers must Close the client.
func dialHarvest() (*temporal.HarvestClient, error) {
	c, err := temporal.NewClient(temporal.ClientConfig{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		TaskQueue: cfg.Temporal.TaskQueue,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to temporal: %w", err)
	}
	hc := temporal.NewHarvestClient(c, cfg.Temporal.TaskQueue)
	if err := hc.Health(context.Background()); err != nil {
		hc.Close()
		return nil, fmt.Errorf("temporal unavailable at %s: %w", cfg.Temporal.HostPort, err)
	}
	return hc, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
