package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutoring-orchestrator/internal/models"
)

type tutoringRequestRow struct {
	ID       string `db:"id"`
	UID      string `db:"uid"`
	Email    string `db:"email"`
	Name     string `db:"name"`
	Subject  string `db:"subject"`
	Class    string `db:"class"`
	Topic    string `db:"topic"`
	Location string `db:"location"`
	Grade    string `db:"grade"`
}

type tutoringSlotRow struct {
	Date     string `db:"slot_date"`
	CycleDay string `db:"cycle_day"`
	Block    string `db:"block"`
}

// TutoringRequestRepository reads help requests and their ordered slots.
type TutoringRequestRepository struct {
	db *sqlx.DB
}

// NewTutoringRequestRepository constructs the repository.
func NewTutoringRequestRepository(db *sqlx.DB) *TutoringRequestRepository {
	return &TutoringRequestRepository{db: db}
}

// GetByID returns the request with availability in requested order, or sql.ErrNoRows.
func (r *TutoringRequestRepository) GetByID(ctx context.Context, id string) (*models.TutoringRequest, error) {
	var row tutoringRequestRow
	const query = `SELECT id, uid, email, name, subject, class, topic, location, grade FROM tutoring_requests WHERE id = ?`
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), id); err != nil {
		return nil, err
	}
	var slots []tutoringSlotRow
	const slotQuery = `SELECT slot_date, cycle_day, block FROM tutoring_request_slots WHERE request_id = ? ORDER BY position`
	if err := r.db.SelectContext(ctx, &slots, r.db.Rebind(slotQuery), id); err != nil {
		return nil, fmt.Errorf("load tutoring request slots: %w", err)
	}
	request := &models.TutoringRequest{
		ID:           row.ID,
		UID:          row.UID,
		Email:        row.Email,
		Name:         row.Name,
		Subject:      row.Subject,
		Class:        row.Class,
		Topic:        row.Topic,
		Location:     row.Location,
		Grade:        row.Grade,
		Availability: make([]models.Slot, len(slots)),
	}
	for i, s := range slots {
		request.Availability[i] = models.Slot{Date: s.Date, CycleDay: s.CycleDay, Block: s.Block}
	}
	return request, nil
}
