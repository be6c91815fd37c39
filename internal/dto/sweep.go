package dto

// SweepRequest triggers a sweep. An empty Today uses the current date in the sweep timezone.
type SweepRequest struct {
	Today string `json:"today" validate:"omitempty,datetime=2006-01-02"`
}

// SweepResponse reports a finished sweep.
type SweepResponse struct {
	Today        string `json:"today"`
	Transitioned int    `json:"transitioned"`
}
