// Package kafka publishes enrichment events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Moutron/home-maintenance-app-sub001/internal/config"
	"github.com/Moutron/home-maintenance-app-sub001/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces property.enriched events. It implements pipeline.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured enriched topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaEnrichedTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish writes a single event, keyed by the normalized cache key so that
// updates for one address stay on one partition.
func (p *Publisher) Publish(ctx context.Context, event domain.EnrichedEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", domain.EventTypeEnriched, err)
	}
	p.logger.Debug("event published", "topic", p.writer.Topic, "key", event.Key, "id", event.ID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an EnrichedEvent into a Kafka message.
func serializeToMessage(event domain.EnrichedEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize enriched event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.Key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(domain.EventTypeEnriched)},
			{Key: "enriched_at", Value: []byte(event.EnrichedAt.Format(time.RFC3339))},
		},
	}, nil
}
