package eventsource

import (
	"encoding/json"
	"time"
)

// Kind is the change type carried by an envelope.
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
)

// Collections known to the store.
const (
	CollectionUsers            = "Users"
	CollectionSessions         = "Sessions"
	CollectionClassRequests    = "ClassRequests"
	CollectionTutoringRequests = "TutoringRequests"
	CollectionHourEntries      = "HourEntries"
	CollectionCycleDays        = "CycleDays"
)

// Envelope is one change notification. Before is empty for creates.
type Envelope struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	Kind       Kind            `json:"kind"`
	DocumentID string          `json:"documentId"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// NewEnvelope marshals the snapshots into an envelope. A nil before produces a create.
func NewEnvelope(id, collection, documentID string, before, after interface{}) (Envelope, error) {
	env := Envelope{
		ID:         id,
		Collection: collection,
		Kind:       KindCreate,
		DocumentID: documentID,
		OccurredAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(after)
	if err != nil {
		return Envelope{}, err
	}
	env.After = raw
	if before != nil {
		raw, err := json.Marshal(before)
		if err != nil {
			return Envelope{}, err
		}
		env.Kind = KindUpdate
		env.Before = raw
	}
	return env, nil
}
