package dto

import "github.com/noah-isme/tutoring-orchestrator/internal/models"

// MatchPreviewRequest is the request matched without notifying anyone.
type MatchPreviewRequest struct {
	Class        string        `json:"class" validate:"required"`
	Subject      string        `json:"subject"`
	Availability []models.Slot `json:"availability" validate:"required,min=1,dive"`
}

// MatchPreviewResponse maps tutor uid to the covered slots.
type MatchPreviewResponse struct {
	Matches map[string][]models.Slot `json:"matches"`
	Tutors  int                      `json:"tutors"`
}
