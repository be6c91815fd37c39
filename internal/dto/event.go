package dto

import (
	"encoding/json"
	"time"
)

// EventRequest is a change notification pushed to POST /events.
type EventRequest struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection" validate:"required,oneof=Users Sessions ClassRequests TutoringRequests HourEntries CycleDays"`
	Kind       string          `json:"kind" validate:"required,oneof=create update"`
	DocumentID string          `json:"documentId" validate:"required"`
	Before     json.RawMessage `json:"before,omitempty" validate:"required_if=Kind update"`
	After      json.RawMessage `json:"after" validate:"required"`
	OccurredAt *time.Time      `json:"occurredAt,omitempty"`
}

// EventAccepted acknowledges a queued event.
type EventAccepted struct {
	ID     string `json:"id"`
	Routed bool   `json:"routed"`
}
