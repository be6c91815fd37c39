package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutoring-orchestrator/internal/models"
)

// BatchOp is one mutation applied inside a batch transaction. Apply returns the affected row count.
type BatchOp interface {
	Name() string
	Apply(ctx context.Context, tx *sqlx.Tx) (int64, error)
}

// Store is the atomic multi-record write boundary of the state store.
type Store struct {
	db *sqlx.DB
}

// NewStore constructs the batch writer.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// BatchWrite applies every op in one transaction: all commit or none do.
// The returned slice holds the affected row count per op, in order.
func (s *Store) BatchWrite(ctx context.Context, ops ...BatchOp) ([]int64, error) {
	if len(ops) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch tx: %w", err)
	}
	affected := make([]int64, len(ops))
	for i, op := range ops {
		n, err := op.Apply(ctx, tx)
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("batch op %d (%s): %w", i, op.Name(), err)
		}
		affected[i] = n
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch tx: %w", err)
	}
	return affected, nil
}

func execAffected(ctx context.Context, tx *sqlx.Tx, query string, args ...interface{}) (int64, error) {
	result, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ApproveClassRequest moves a pending request to approved and records who decided.
type ApproveClassRequest struct {
	ID            string
	DecidedAt     time.Time
	DecidedByUID  string
	DecidedByRole string
	AutoApproved  bool
}

func (op ApproveClassRequest) Name() string { return "approve_class_request" }

func (op ApproveClassRequest) Apply(ctx context.Context, tx *sqlx.Tx) (int64, error) {
	const query = `UPDATE class_requests
SET status = ?, decided_at = ?, decided_by_uid = ?, decided_by_role = ?, auto_approved = ?
WHERE id = ? AND status = ?`
	return execAffected(ctx, tx, query,
		models.ClassRequestStatusApproved,
		op.DecidedAt,
		op.DecidedByUID,
		op.DecidedByRole,
		op.AutoApproved,
		op.ID,
		models.ClassRequestStatusPending,
	)
}

// GrantClass adds class to the user's tutoring set. Re-granting is a no-op.
// With RequestID set the grant only applies while that class request is approved,
// so a concurrent rejection inside the same batch cannot leave a stray grant.
type GrantClass struct {
	UID       string
	Class     string
	RequestID string
}

func (op GrantClass) Name() string { return "grant_class" }

func (op GrantClass) Apply(ctx context.Context, tx *sqlx.Tx) (int64, error) {
	if op.RequestID == "" {
		const query = `INSERT INTO user_classes (uid, class) VALUES (?, ?) ON CONFLICT (uid, class) DO NOTHING`
		return execAffected(ctx, tx, query, op.UID, op.Class)
	}
	const query = `INSERT INTO user_classes (uid, class)
SELECT ?, ? WHERE EXISTS (SELECT 1 FROM class_requests WHERE id = ? AND status = ?)
ON CONFLICT (uid, class) DO NOTHING`
	return execAffected(ctx, tx, query, op.UID, op.Class, op.RequestID, models.ClassRequestStatusApproved)
}

// CompleteSession flips a still-scheduled session to completed.
type CompleteSession struct {
	ID              string
	AutoCompletedAt time.Time
}

func (op CompleteSession) Name() string { return "complete_session" }

func (op CompleteSession) Apply(ctx context.Context, tx *sqlx.Tx) (int64, error) {
	const query = `UPDATE sessions SET status = ?, auto_completed_at = ?, updated_at = ? WHERE id = ? AND status = ?`
	return execAffected(ctx, tx, query,
		models.SessionStatusCompleted,
		op.AutoCompletedAt,
		op.AutoCompletedAt,
		op.ID,
		models.SessionStatusScheduled,
	)
}
