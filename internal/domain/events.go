package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type constants for index events.
const (
	EventTypeRecordsIndexed = "records.indexed"
)

// IndexEvent announces that a record was written to a search index.
type IndexEvent struct {
	EventID   string    `json:"eventId"`
	Type      string    `json:"type"`
	RecordID  string    `json:"id"`
	Source    Source    `json:"source"`
	Index     string    `json:"index"`
	IndexedAt time.Time `json:"indexedAt"`
}

// NewIndexEvent creates a records.indexed event for a record written to index.
func NewIndexEvent(index string, rec OARecord, at time.Time) IndexEvent {
	return IndexEvent{
		EventID:   uuid.New().String(),
		Type:      EventTypeRecordsIndexed,
		RecordID:  rec.ID,
		Source:    rec.Source,
		Index:     index,
		IndexedAt: at.UTC(),
	}
}

// Marshal serializes the event payload.
func (e IndexEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
