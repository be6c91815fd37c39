package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutoring-orchestrator/internal/models"
)

const sessionColumns = `id, status, slot_date, slot_cycle_day, slot_block, student_uid, email, name,
tutor_uid, tutor_email, tutor_name, subject, class, location, auto_completed_at`

type sessionRow struct {
	ID              string     `db:"id"`
	Status          string     `db:"status"`
	SlotDate        string     `db:"slot_date"`
	SlotCycleDay    string     `db:"slot_cycle_day"`
	SlotBlock       string     `db:"slot_block"`
	StudentUID      string     `db:"student_uid"`
	Email           string     `db:"email"`
	Name            string     `db:"name"`
	TutorUID        string     `db:"tutor_uid"`
	TutorEmail      string     `db:"tutor_email"`
	TutorName       string     `db:"tutor_name"`
	Subject         string     `db:"subject"`
	Class           string     `db:"class"`
	Location        string     `db:"location"`
	AutoCompletedAt *time.Time `db:"auto_completed_at"`
}

func (row sessionRow) toModel() models.Session {
	return models.Session{
		ID:              row.ID,
		Status:          models.SessionStatus(row.Status),
		Slot:            models.Slot{Date: row.SlotDate, CycleDay: row.SlotCycleDay, Block: row.SlotBlock},
		StudentUID:      row.StudentUID,
		Email:           row.Email,
		Name:            row.Name,
		TutorUID:        row.TutorUID,
		TutorEmail:      row.TutorEmail,
		TutorName:       row.TutorName,
		Subject:         row.Subject,
		Class:           row.Class,
		Location:        row.Location,
		AutoCompletedAt: row.AutoCompletedAt,
	}
}

// SessionRepository reads tutoring sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// GetByID returns the current session or sql.ErrNoRows.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	var row sessionRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`), id); err != nil {
		return nil, err
	}
	session := row.toModel()
	return &session, nil
}

// ListByStatus scans every session in status.
func (r *SessionRepository) ListByStatus(ctx context.Context, status models.SessionStatus) ([]models.Session, error) {
	var rows []sessionRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`SELECT `+sessionColumns+` FROM sessions WHERE status = ? ORDER BY id`), status); err != nil {
		return nil, fmt.Errorf("list sessions by status: %w", err)
	}
	sessions := make([]models.Session, len(rows))
	for i, row := range rows {
		sessions[i] = row.toModel()
	}
	return sessions, nil
}
