package message

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation = "23505"
	// partial unique index over pending requests, see migrations
	pendingRequestKey = "messages_pending_request_key"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const messageColumns = `id, contenu, sender_role, sender_id, receiver_id, is_request, request_status, created_at`

func scanMessage(row pgx.Row) (*Message, error) {
	var (
		m      Message
		status *string
	)

	err := row.Scan(
		&m.ID,
		&m.Contenu,
		&m.SenderRole,
		&m.SenderID,
		&m.ReceiverID,
		&m.IsRequest,
		&status,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}

	if status != nil {
		s := RequestStatus(*status)
		m.RequestStatus = &s
	}
	return &m, nil
}

func (r *PgRepository) Insert(ctx context.Context, m *Message) error {
	return insertMessage(ctx, r.pool, m)
}

func insertMessage(ctx context.Context, q querier, m *Message) error {
	var status *string
	if m.RequestStatus != nil {
		s := string(*m.RequestStatus)
		status = &s
	}

	row := q.QueryRow(ctx, `
		INSERT INTO messages (id, contenu, sender_role, sender_id, receiver_id, is_request, request_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING created_at
	`, m.ID, m.Contenu, m.SenderRole, m.SenderID, m.ReceiverID, m.IsRequest, status)

	if err := row.Scan(&m.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == pendingRequestKey {
			return ErrRequestAlreadyPending
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Message, error) {
	return scanMessage(r.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (r *PgRepository) Conversation(ctx context.Context, a, b uuid.UUID, limit int) ([]Message, error) {
	// newest page, returned oldest first
	return r.list(ctx, `
		SELECT `+messageColumns+` FROM (
			SELECT `+messageColumns+`
			FROM messages
			WHERE (sender_id = $1 AND receiver_id = $2)
			   OR (sender_id = $2 AND receiver_id = $1)
			ORDER BY created_at DESC
			LIMIT $3
		) page
		ORDER BY created_at ASC
	`, a, b, limit)
}

func (r *PgRepository) Inbox(ctx context.Context, userID uuid.UUID) ([]Message, error) {
	return r.list(ctx, `
		SELECT `+messageColumns+` FROM (
			SELECT DISTINCT ON (counterpart) `+messageColumns+`
			FROM (
				SELECT `+messageColumns+`,
				       CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS counterpart
				FROM messages
				WHERE sender_id = $1 OR receiver_id = $1
			) mine
			ORDER BY counterpart, created_at DESC
		) latest
		ORDER BY created_at DESC
	`, userID)
}

func (r *PgRepository) PendingRequests(ctx context.Context, medecinID uuid.UUID) ([]Message, error) {
	return r.list(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE receiver_id = $1 AND is_request AND request_status = 'pending'
		ORDER BY created_at
	`, medecinID)
}

func (r *PgRepository) HasRequest(ctx context.Context, patientID, medecinID uuid.UUID, status RequestStatus) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM messages
			WHERE sender_id = $1 AND receiver_id = $2 AND is_request AND request_status = $3
		)
	`, patientID, medecinID, string(status)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check request: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) SetRequestStatus(ctx context.Context, id uuid.UUID, from, to RequestStatus) (*Message, error) {
	return setRequestStatus(ctx, r.pool, id, from, to)
}

func setRequestStatus(ctx context.Context, q querier, id uuid.UUID, from, to RequestStatus) (*Message, error) {
	row := q.QueryRow(ctx, `
		UPDATE messages
		SET request_status = $2
		WHERE id = $1
		  AND is_request
		  AND request_status = $3
		RETURNING `+messageColumns, id, string(to), string(from))

	return scanMessage(row)
}

func (r *PgRepository) AcceptRequest(ctx context.Context, id uuid.UUID, reply *Message) (*Message, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin accept: %w", err)
	}
	defer tx.Rollback(ctx)

	req, err := setRequestStatus(ctx, tx, id, RequestPending, RequestAccepted)
	if err != nil {
		return nil, err
	}
	if err := insertMessage(ctx, tx, reply); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit accept: %w", err)
	}
	return req, nil
}

func (r *PgRepository) list(ctx context.Context, sql string, args ...any) ([]Message, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var result []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
