package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/oa-metasearch/internal/observability"
	"github.com/helixir/oa-metasearch/internal/temporal"
)

// HarvestStarter starts harvest workflows. *temporal.HarvestClient satisfies it.
type HarvestStarter interface {
	StartHarvest(ctx context.Context, input temporal.HarvestInput) (workflowID, runID string, err error)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// ListenerConfig holds consumer settings for harvest requests.
type ListenerConfig struct {
	Brokers []string
	Topic   string
	GroupID string

	// Defaults fills Index, BatchSize and MaxPerSource when a request leaves them unset.
	Defaults temporal.HarvestInput
}

// HarvestListener consumes harvest requests from Kafka. Each message value is
// a JSON temporal.HarvestInput.
type HarvestListener struct {
	reader   messageReader
	starter  HarvestStarter
	defaults temporal.HarvestInput
	logger   zerolog.Logger
}

// NewHarvestListener creates a listener reading cfg.Topic as cfg.GroupID.
func NewHarvestListener(cfg ListenerConfig, starter HarvestStarter, logger zerolog.Logger) *HarvestListener {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  3 * time.Second,
	})
	return newHarvestListener(reader, starter, cfg.Defaults, logger)
}

func newHarvestListener(r messageReader, starter HarvestStarter, defaults temporal.HarvestInput, logger zerolog.Logger) *HarvestListener {
	return &HarvestListener{
		reader:   r,
		starter:  starter,
		defaults: defaults,
		logger:   observability.WithComponent(logger, "harvest_listener"),
	}
}

// Run reads until ctx is cancelled. Malformed or rejected requests are logged
// and skipped.
func (l *HarvestListener) Run(ctx context.Context) error {
	l.logger.Info().Msg("starting harvest listener")

	for {
		msg, err := l.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info().Msg("harvest listener stopped")
				return ctx.Err()
			}
			l.logger.Error().Err(err).Msg("failed to read message from Kafka")
			continue
		}

		l.logger.Debug().
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("received harvest request")

		var input temporal.HarvestInput
		if err := json.Unmarshal(msg.Value, &input); err != nil {
			l.logger.Error().Err(err).
				Str("raw_value", string(msg.Value)).
				Msg("failed to unmarshal harvest request")
			continue
		}
		l.handle(ctx, l.applyDefaults(input))
	}
}

func (l *HarvestListener) applyDefaults(in temporal.HarvestInput) temporal.HarvestInput {
	if in.Index == "" {
		in.Index = l.defaults.Index
	}
	if in.BatchSize == 0 {
		in.BatchSize = l.defaults.BatchSize
	}
	if in.MaxPerSource == 0 {
		in.MaxPerSource = l.defaults.MaxPerSource
	}
	if in.RequestedBy == "" {
		in.RequestedBy = "kafka"
	}
	return in
}

func (l *HarvestListener) handle(ctx context.Context, input temporal.HarvestInput) {
	workflowID, runID, err := l.starter.StartHarvest(ctx, input)
	switch {
	case errors.Is(err, temporal.ErrHarvestRunning):
		l.logger.Info().Str("index", input.Index).Msg("harvest already running, request skipped")
	case err != nil:
		l.logger.Error().Err(err).Str("index", input.Index).Msg("failed to start harvest")
	default:
		l.logger.Info().
			Str("index", input.Index).
			Str("workflow_id", workflowID).
			Str("run_id", runID).
			Msg("harvest started")
	}
}

// Close closes the Kafka reader.
func (l *HarvestListener) Close() error {
	l.logger.Info().Msg("closing harvest listener")
	return l.reader.Close()
}
