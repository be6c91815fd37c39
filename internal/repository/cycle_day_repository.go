package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutoring-orchestrator/internal/models"
)

// CycleDayRepository reads the date to cycle-day lookup populated by the calendar ingester.
type CycleDayRepository struct {
	db *sqlx.DB
}

// NewCycleDayRepository constructs the repository.
func NewCycleDayRepository(db *sqlx.DB) *CycleDayRepository {
	return &CycleDayRepository{db: db}
}

// Get returns the cycle day for date or sql.ErrNoRows.
func (r *CycleDayRepository) Get(ctx context.Context, date string) (*models.CycleDay, error) {
	var day models.CycleDay
	if err := r.db.GetContext(ctx, &day, r.db.Rebind(`SELECT date, cycle_day FROM cycle_days WHERE date = ?`), date); err != nil {
		return nil, err
	}
	return &day, nil
}
