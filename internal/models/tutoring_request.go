package models

// TutoringRequest is a student's help request. It is immutable once created.
type TutoringRequest struct {
	ID           string `json:"id"`
	UID          string `json:"uid,omitempty"`
	Email        string `json:"email,omitempty"`
	Name         string `json:"name,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Class        string `json:"class" validate:"required"`
	Topic        string `json:"topic,omitempty"`
	Location     string `json:"location,omitempty"`
	Grade        string `json:"grade,omitempty"`
	Availability []Slot `json:"availability"`
}
