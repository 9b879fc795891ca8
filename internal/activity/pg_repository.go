package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Insert(ctx context.Context, a Activity) error {
	var payload any
	if len(a.Payload) > 0 {
		payload = []byte(a.Payload)
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO activities (user_id, action, entity, entity_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
	`, a.UserID, a.Action, a.Entity, a.EntityID, payload, nullableTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r *PgRepository) ListRecent(ctx context.Context, limit, offset int) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, action, entity, entity_id, payload, created_at
		FROM activities
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var result []Activity
	for rows.Next() {
		var a Activity
		var payload []byte
		if err := rows.Scan(&a.ID, &a.UserID, &a.Action, &a.Entity, &a.EntityID, &payload, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Payload = payload
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
