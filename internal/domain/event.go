package domain

import "time"

// EventTypeEnriched is the event_type header value for published profiles.
const EventTypeEnriched = "property.enriched"

// EnrichedEvent is the message published after a cacheable enrichment.
type EnrichedEvent struct {
	ID         string          `json:"id"`
	RunID      string          `json:"run_id"`
	Key        string          `json:"key"`
	Address    Address         `json:"address"`
	Profile    PropertyProfile `json:"profile"`
	EnrichedAt time.Time       `json:"enriched_at"`
}
