package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutoring-orchestrator/internal/models"
)

// ClassRequestRepository reads class grant requests.
type ClassRequestRepository struct {
	db *sqlx.DB
}

// NewClassRequestRepository constructs the repository.
func NewClassRequestRepository(db *sqlx.DB) *ClassRequestRepository {
	return &ClassRequestRepository{db: db}
}

// GetByID returns the request or sql.ErrNoRows.
func (r *ClassRequestRepository) GetByID(ctx context.Context, id string) (*models.ClassRequest, error) {
	const query = `SELECT id, uid, subject, class, status, user_email, user_name, auto_approved,
decided_at, decided_by_uid, decided_by_role FROM class_requests WHERE id = ?`
	var request models.ClassRequest
	if err := r.db.GetContext(ctx, &request, r.db.Rebind(query), id); err != nil {
		return nil, err
	}
	return &request, nil
}
