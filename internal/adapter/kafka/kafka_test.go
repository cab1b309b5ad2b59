package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Moutron/home-maintenance-app-sub001/internal/config"
	"github.com/Moutron/home-maintenance-app-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() domain.EnrichedEvent {
	year := 1980
	return domain.EnrichedEvent{
		ID:      "evt-1",
		RunID:   "run-1",
		Key:     "123 test st|san francisco|CA|94102",
		Address: domain.Address{Street: "123 Test St", City: "San Francisco", State: "CA", ZipCode: "94102"},
		Profile: domain.PropertyProfile{
			YearBuilt: &year,
			Sources:   []string{domain.SourcePropertyRecords},
		},
		EnrichedAt: time.Date(2026, 4, 26, 15, 10, 0, 0, time.UTC),
	}
}

func TestSerializeToMessage(t *testing.T) {
	event := sampleEvent()

	msg, err := serializeToMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte(event.Key), msg.Key)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("property.enriched"), msg.Headers[0].Value)
	assert.Equal(t, "enriched_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2026-04-26T15:10:00Z"), msg.Headers[1].Value)

	var decoded domain.EnrichedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event, decoded)
	assert.Contains(t, string(msg.Value), `"run_id":"run-1"`)
	assert.Contains(t, string(msg.Value), `"yearBuilt":1980`)
}

func TestPublish_UnreachableBroker(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"127.0.0.1:1"}, KafkaEnrichedTopic: "property-enriched"}
	p := NewPublisher(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer func() { _ = p.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := p.Publish(ctx, sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish property.enriched")
}
