// Package events connects the service to Kafka: it publishes records.indexed
// events after harvest batches and consumes harvest requests.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/oa-metasearch/internal/domain"
	"github.com/helixir/oa-metasearch/internal/observability"
)

// Publisher announces records written to an index.
type Publisher interface {
	PublishIndexed(ctx context.Context, index string, records []domain.OARecord) error
	Close() error
}

// messageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// PublisherConfig holds Kafka producer settings.
type PublisherConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
}

// KafkaPublisher writes one message per record, keyed by record id so every
// event for a record lands on the same partition.
type KafkaPublisher struct {
	writer messageWriter
	logger zerolog.Logger
	now    func() time.Time
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher for cfg.Topic.
func NewKafkaPublisher(cfg PublisherConfig, logger zerolog.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireAll,
	}
	return newKafkaPublisher(w, logger)
}

func newKafkaPublisher(w messageWriter, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: w,
		logger: observability.WithComponent(logger, "event_publisher"),
		now:    time.Now,
	}
}

// PublishIndexed writes a records.indexed event per record.
func (p *KafkaPublisher) PublishIndexed(ctx context.Context, index string, records []domain.OARecord) error {
	if len(records) == 0 {
		return nil
	}
	at := p.now()
	msgs := make([]kafka.Message, 0, len(records))
	for _, r := range records {
		ev := domain.NewIndexEvent(index, r, at)
		value, err := ev.Marshal()
		if err != nil {
			return fmt.Errorf("marshal event for %s: %w", r.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(r.ID),
			Value: value,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(domain.EventTypeRecordsIndexed)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d events: %w", len(msgs), err)
	}
	p.logger.Debug().
		Str("index", index).
		Int("events", len(msgs)).
		Msg("index events published")
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher discards events. It is used when Kafka is disabled.
type NopPublisher struct{}

var _ Publisher = NopPublisher{}

// PublishIndexed does nothing.
func (NopPublisher) PublishIndexed(context.Context, string, []domain.OARecord) error { return nil }

// Close does nothing.
func (NopPublisher) Close() error { return nil }
