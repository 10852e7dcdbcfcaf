package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ActivityRepository appends to and reads the activity log.
type ActivityRepository interface {
	Append(ctx context.Context, entry *domain.ActivityEntry) error
	Recent(ctx context.Context, limit int) ([]domain.ActivityEntry, error)
}

type activityRepository struct {
	db DBTX
}

// NewActivityRepository returns a Postgres-backed activity log.
func NewActivityRepository(db DBTX) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Append(ctx context.Context, entry *domain.ActivityEntry) error {
	const query = `
        INSERT INTO activity_log (user_id, action)
        VALUES ($1, $2)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query, entry.UserID, entry.Action).Scan(&entry.ID, &entry.CreatedAt)
}

// Recent returns the newest entries first.
func (r *activityRepository) Recent(ctx context.Context, limit int) ([]domain.ActivityEntry, error) {
	const query = `
        SELECT id, user_id, action, created_at
        FROM activity_log
        ORDER BY created_at DESC, id DESC
        LIMIT $1`

	limit, _ = clampPage(limit, 0, 200, 1000)
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.ActivityEntry{}
	for rows.Next() {
		var entry domain.ActivityEntry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Action, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
