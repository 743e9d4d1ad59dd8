// Package main applies the schema migrations of the postgres search backend.
//
// Usage:
//
//	migrate up | down | version
//	migrate steps N      (positive applies, negative rolls back)
//	migrate force V      (marks version V clean after a failed migration)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/oa-metasearch/internal/config"
	"github.com/helixir/oa-metasearch/internal/database"
	"github.com/helixir/oa-metasearch/internal/observability"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// action is one migrate command bound to its parsed argument.
type action struct {
	name string
	arg  int
}

func parseAction(args []string) (action, error) {
	if len(args) == 0 {
		return action{}, fmt.Errorf("no command given, want one of: up, down, steps N, version, force V")
	}
	a := action{name: args[0]}
	switch a.name {
	case "up", "down", "version":
		if len(args) != 1 {
			return action{}, fmt.Errorf("%s takes no arguments", a.name)
		}
	case "steps", "force":
		if len(args) != 2 {
			return action{}, fmt.Errorf("%s needs exactly one integer argument", a.name)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return action{}, fmt.Errorf("%s: invalid integer %q", a.name, args[1])
		}
		if a.name == "steps" && n == 0 {
			return action{}, fmt.Errorf("steps must not be zero")
		}
		if a.name == "force" && n < 0 {
			return action{}, fmt.Errorf("force version must not be negative")
		}
		a.arg = n
	default:
		return action{}, fmt.Errorf("unknown command %q", a.name)
	}
	return a, nil
}

func run(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	configFile := fs.String("config", "", "config file (default: search the standard locations)")
	timeout := fs.Duration("timeout", 30*time.Second, "database connect and migrate timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	act, err := parseAction(fs.Args())
	if err != nil {
		fs.Usage()
		return err
	}

	cfg, err := config.LoadFrom(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}).With().Str("component", "migrate").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	if err := apply(migrator, act, logger); err != nil {
		return err
	}
	printVersion(migrator, logger)
	return nil
}

func apply(m *database.Migrator, act action, logger zerolog.Logger) error {
	switch act.name {
	case "up":
		logger.Info().Msg("applying pending migrations")
		return wrap("up", m.Up())
	case "down":
		logger.Warn().Msg("rolling back all migrations")
		return wrap("down", m.Down())
	case "steps":
		logger.Info().Int("steps", act.arg).Msg("applying migration steps")
		return wrap("steps", m.Steps(act.arg))
	case "force":
		logger.Warn().Int("version", act.arg).Msg("forcing migration version")
		return wrap("force", m.Force(act.arg))
	default:
		return nil
	}
}

func wrap(op string, err error) error {
	if err != nil {
		return fmt.Errorf("migrate %s: %w", op, err)
	}
	return nil
}

// printVersion logs the current migration version.
func printVersion(m *database.Migrator, logger zerolog.Logger) {
	v, dirty, err := m.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine migration version")
		return
	}
	logger.Info().
		Uint("version", v).
		Bool("dirty", dirty).
		Msg("current migration version")
}
