package models

import "time"

// SessionStatus captures the lifecycle of a tutoring meeting.
type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// SessionTransitions lists every status change a Session may make. Both targets are terminal.
var SessionTransitions = NewTransitionTable("session",
	Transition[SessionStatus]{From: SessionStatusScheduled, To: SessionStatusCompleted},
	Transition[SessionStatus]{From: SessionStatusScheduled, To: SessionStatusCancelled},
)

// Session is one scheduled tutoring meeting between a student and a tutor.
type Session struct {
	ID              string        `json:"id"`
	Status          SessionStatus `json:"status"`
	Slot            Slot          `json:"slot"`
	StudentUID      string        `json:"studentUid,omitempty"`
	Email           string        `json:"email,omitempty"`
	Name            string        `json:"name,omitempty"`
	TutorUID        string        `json:"tutorUid,omitempty"`
	TutorEmail      string        `json:"tutorEmail,omitempty"`
	TutorName       string        `json:"tutorName,omitempty"`
	Subject         string        `json:"subject,omitempty"`
	Class           string        `json:"class,omitempty"`
	Location        string        `json:"location,omitempty"`
	AutoCompletedAt *time.Time    `json:"autoCompletedAt,omitempty"`
}

// MissingCompletionFields lists the data an HourEntry needs that the session lacks.
func (s Session) MissingCompletionFields() []string {
	var missing []string
	if s.TutorUID == "" {
		missing = append(missing, "tutorUid")
	}
	if s.Slot.Date == "" {
		missing = append(missing, "slot.date")
	}
	if s.Slot.CycleDay == "" {
		missing = append(missing, "slot.cycleDay")
	}
	if s.Slot.Block == "" {
		missing = append(missing, "slot.block")
	}
	return missing
}
