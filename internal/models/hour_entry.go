package models

import "time"

// HourEntryType distinguishes how an hour entry was produced.
type HourEntryType string

const (
	HourEntryCompletedSession HourEntryType = "completed_session"
	HourEntrySelfReported     HourEntryType = "self_reported"
)

// HourEntry is an append-only record of tutoring time.
type HourEntry struct {
	ID          string        `json:"id"`
	Type        HourEntryType `json:"type"`
	SessionID   *string       `json:"sessionId,omitempty"`
	TutorUID    string        `json:"tutorUid"`
	TutorName   string        `json:"tutorName,omitempty"`
	Slot        Slot          `json:"slot"`
	Subject     string        `json:"subject,omitempty"`
	Class       string        `json:"class,omitempty"`
	StudentName string        `json:"studentName,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// HourEntryFilter constrains listing queries.
type HourEntryFilter struct {
	TutorUID string
	From     string
	To       string
	Limit    int
}
