package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutoring-orchestrator/internal/models"
)

// UserRepository reads users together with their class grants and availability.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID returns a hydrated user or sql.ErrNoRows.
func (r *UserRepository) GetByID(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, r.db.Rebind(`SELECT uid, email, name, role FROM users WHERE uid = ?`), uid); err != nil {
		return nil, err
	}
	users := []models.User{user}
	if err := r.hydrate(ctx, users); err != nil {
		return nil, err
	}
	return &users[0], nil
}

// ListByRole returns users holding exactly role. Classes and availability are not loaded.
func (r *UserRepository) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, r.db.Rebind(`SELECT uid, email, name, role FROM users WHERE role = ? ORDER BY uid`), role); err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	return users, nil
}

// ListTutorsByClass returns hydrated users approved to tutor class.
func (r *UserRepository) ListTutorsByClass(ctx context.Context, class string) ([]models.User, error) {
	const query = `SELECT u.uid, u.email, u.name, u.role FROM users u
JOIN user_classes c ON c.uid = u.uid
WHERE c.class = ? ORDER BY u.uid`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, r.db.Rebind(query), class); err != nil {
		return nil, fmt.Errorf("list tutors by class: %w", err)
	}
	if err := r.hydrate(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

type userClassRow struct {
	UID   string `db:"uid"`
	Class string `db:"class"`
}

type userAvailabilityRow struct {
	UID     string `db:"uid"`
	SlotKey string `db:"slot_key"`
	Free    bool   `db:"free"`
}

func (r *UserRepository) hydrate(ctx context.Context, users []models.User) error {
	if len(users) == 0 {
		return nil
	}
	index := make(map[string]int, len(users))
	uids := make([]string, len(users))
	for i := range users {
		index[users[i].UID] = i
		uids[i] = users[i].UID
		users[i].Classes = []string{}
		users[i].Availability = map[string]bool{}
	}

	query, args, err := sqlx.In(`SELECT uid, class FROM user_classes WHERE uid IN (?) ORDER BY uid, class`, uids)
	if err != nil {
		return fmt.Errorf("build user classes query: %w", err)
	}
	var classes []userClassRow
	if err := r.db.SelectContext(ctx, &classes, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("load user classes: %w", err)
	}
	for _, row := range classes {
		if i, ok := index[row.UID]; ok {
			users[i].Classes = append(users[i].Classes, row.Class)
		}
	}

	query, args, err = sqlx.In(`SELECT uid, slot_key, free FROM user_availability WHERE uid IN (?)`, uids)
	if err != nil {
		return fmt.Errorf("build user availability query: %w", err)
	}
	var slots []userAvailabilityRow
	if err := r.db.SelectContext(ctx, &slots, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("load user availability: %w", err)
	}
	for _, row := range slots {
		if i, ok := index[row.UID]; ok {
			users[i].Availability[row.SlotKey] = row.Free
		}
	}
	return nil
}
