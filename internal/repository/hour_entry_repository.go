package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutoring-orchestrator/internal/models"
)

type hourEntryRow struct {
	ID           string    `db:"id"`
	Type         string    `db:"type"`
	SessionID    *string   `db:"session_id"`
	TutorUID     string    `db:"tutor_uid"`
	TutorName    string    `db:"tutor_name"`
	SlotDate     string    `db:"slot_date"`
	SlotCycleDay string    `db:"slot_cycle_day"`
	SlotBlock    string    `db:"slot_block"`
	Subject      string    `db:"subject"`
	Class        string    `db:"class"`
	StudentName  string    `db:"student_name"`
	CreatedAt    time.Time `db:"created_at"`
}

// HourEntryRepository appends and lists tutoring hour records.
type HourEntryRepository struct {
	db *sqlx.DB
}

// NewHourEntryRepository constructs the repository.
func NewHourEntryRepository(db *sqlx.DB) *HourEntryRepository {
	return &HourEntryRepository{db: db}
}

// Append inserts entry unless another entry already references the same session.
// It reports whether a row was written.
func (r *HourEntryRepository) Append(ctx context.Context, entry *models.HourEntry) (bool, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO hour_entries
(id, type, session_id, tutor_uid, tutor_name, slot_date, slot_cycle_day, slot_block, subject, class, student_name, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (session_id) DO NOTHING`
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		entry.ID,
		entry.Type,
		entry.SessionID,
		entry.TutorUID,
		entry.TutorName,
		entry.Slot.Date,
		entry.Slot.CycleDay,
		entry.Slot.Block,
		entry.Subject,
		entry.Class,
		entry.StudentName,
		entry.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("append hour entry: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check hour entry rows: %w", err)
	}
	return rows > 0, nil
}

// List returns a tutor's entries, oldest first.
func (r *HourEntryRepository) List(ctx context.Context, filter models.HourEntryFilter) ([]models.HourEntry, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT id, type, session_id, tutor_uid, tutor_name, slot_date, slot_cycle_day, slot_block,
subject, class, student_name, created_at FROM hour_entries WHERE tutor_uid = ?`)
	args := []interface{}{filter.TutorUID}
	if filter.From != "" {
		builder.WriteString(" AND slot_date >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		builder.WriteString(" AND slot_date <= ?")
		args = append(args, filter.To)
	}
	builder.WriteString(" ORDER BY slot_date ASC, created_at ASC")

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 500
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d", limit))

	var rows []hourEntryRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(builder.String()), args...); err != nil {
		return nil, fmt.Errorf("list hour entries: %w", err)
	}
	entries := make([]models.HourEntry, len(rows))
	for i, row := range rows {
		entries[i] = models.HourEntry{
			ID:          row.ID,
			Type:        models.HourEntryType(row.Type),
			SessionID:   row.SessionID,
			TutorUID:    row.TutorUID,
			TutorName:   row.TutorName,
			Slot:        models.Slot{Date: row.SlotDate, CycleDay: row.SlotCycleDay, Block: row.SlotBlock},
			Subject:     row.Subject,
			Class:       row.Class,
			StudentName: row.StudentName,
			CreatedAt:   row.CreatedAt,
		}
	}
	return entries, nil
}
