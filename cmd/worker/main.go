// Package main provides the entry point for the OA metasearch harvest worker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/helixir/oa-metasearch/internal/config"
	"github.com/helixir/oa-metasearch/internal/events"
	"github.com/helixir/oa-metasearch/internal/observability"
	"github.com/helixir/oa-metasearch/internal/papersources/catalog"
	"github.com/helixir/oa-metasearch/internal/search/backend"
	"github.com/helixir/oa-metasearch/internal/temporal"
	"github.com/helixir/oa-metasearch/internal/temporal/activities"
	"github.com/helixir/oa-metasearch/internal/temporal/workflows"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "worker").Logger()
	logger.Info().Msg("oa-metasearch worker starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace)
	}

	// Open the search backend the harvest writes into.
	backendCfg, err := backend.Resolve(cfg.Search, cfg.Database)
	if err != nil {
		return fmt.Errorf("resolve search backend: %w", err)
	}
	index, closeIndex, err := backend.New(ctx, backendCfg, backend.Deps{Logger: logger, Metrics: metrics})
	if err != nil {
		return fmt.Errorf("open search backend: %w", err)
	}
	defer closeIndex()

	if err := index.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}

	registry := catalog.Build(cfg.Sources, logger, metrics)

	// Index events go to Kafka when enabled.
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(events.PublisherConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		}, logger)
		logger.Info().
			Strs("brokers", cfg.Kafka.Brokers).
			Str("topic", cfg.Kafka.Topic).
			Msg("kafka index event publisher enabled")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	// Create Temporal client.
	temporalClient, err := temporal.NewClient(temporal.ClientConfig{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		TaskQueue: cfg.Temporal.TaskQueue,
	}, logger)
	if err != nil {
		return fmt.Errorf("connect to temporal: %w", err)
	}
	harvestClient := temporal.NewHarvestClient(temporalClient, cfg.Temporal.TaskQueue)
	defer harvestClient.Close()

	logger.Info().
		Str("host_port", cfg.Temporal.HostPort).
		Str("namespace", cfg.Temporal.Namespace).
		Msg("temporal client connected")

	workerCfg := temporal.DefaultWorkerConfig(cfg.Temporal.TaskQueue)
	manager, err := temporal.NewWorkerManager(temporalClient, workerCfg)
	if err != nil {
		return fmt.Errorf("create worker manager: %w", err)
	}

	manager.RegisterWorkflow(temporal.HarvestWorkflowName, workflows.HarvestWorkflow)
	manager.RegisterActivity(activities.NewHarvestActivities(registry, index, cfg.Search.Index, publisher))

	// Start the harvest request listener if Kafka carries a request topic.
	if cfg.Kafka.Enabled && cfg.Kafka.HarvestTopic != "" {
		listener := events.NewHarvestListener(events.ListenerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.HarvestTopic,
			GroupID: cfg.Kafka.GroupID,
			Defaults: temporal.HarvestInput{
				Index:        cfg.Search.Index,
				BatchSize:    cfg.Harvest.BatchSize,
				MaxPerSource: cfg.Harvest.MaxPerSource,
			},
		}, harvestClient, logger)
		defer func() {
			if err := listener.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close harvest listener")
			}
		}()

		go func() {
			if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("harvest listener error")
			}
		}()

		logger.Info().
			Str("topic", cfg.Kafka.HarvestTopic).
			Str("group_id", cfg.Kafka.GroupID).
			Msg("harvest listener started")
	}

	logger.Info().
		Str("task_queue", cfg.Temporal.TaskQueue).
		Str("backend", index.Name()).
		Msg("starting temporal worker")

	// Start the worker and block until context is cancelled.
	if err := manager.Start(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Info().Msg("worker stopped via signal")
			return nil
		}
		return fmt.Errorf("worker error: %w", err)
	}

	return nil
}
