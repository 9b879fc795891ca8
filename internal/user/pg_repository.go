package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const userColumns = `id, email, password_hash, role, nom, prenom, telephone, adresse,
	date_naissance, specialite, medecin_id, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.Nom,
		&u.Prenom,
		&u.Telephone,
		&u.Adresse,
		&u.DateNaissance,
		&u.Specialite,
		&u.MedecinID,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrEmailTaken
	}
	return err
}

func (r *PgRepository) Create(ctx context.Context, u *User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, role, nom, prenom, telephone, adresse,
			date_naissance, specialite, medecin_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
		RETURNING created_at, updated_at
	`, u.ID, u.Email, u.PasswordHash, u.Role, u.Nom, u.Prenom, u.Telephone, u.Adresse,
		u.DateNaissance, u.Specialite, u.MedecinID, u.IsActive)

	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return fmt.Errorf("insert user: %w", mapWriteErr(err))
	}
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *PgRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

func (r *PgRepository) Update(ctx context.Context, u *User) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET email = $2, role = $3, nom = $4, prenom = $5, telephone = $6, adresse = $7,
		    date_naissance = $8, specialite = $9, medecin_id = $10, is_active = $11,
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, u.ID, u.Email, u.Role, u.Nom, u.Prenom, u.Telephone, u.Adresse,
		u.DateNaissance, u.Specialite, u.MedecinID, u.IsActive)

	if err := row.Scan(&u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update user: %w", mapWriteErr(err))
	}
	return nil
}

func (r *PgRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.execOne(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
}

func (r *PgRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.execOne(ctx, `UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, `DELETE FROM users WHERE id = $1`, id)
}

func (r *PgRepository) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PgRepository) List(ctx context.Context, f Filter) ([]User, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Role != "" {
		where = append(where, "role = "+arg(f.Role))
	}
	if f.Specialite != "" {
		where = append(where, "lower(specialite) = lower("+arg(f.Specialite)+")")
	}
	if f.MedecinID != nil {
		where = append(where, "medecin_id = "+arg(*f.MedecinID))
	}
	if f.ActiveOnly {
		where = append(where, "is_active")
	}
	if f.Search != "" {
		p := arg("%" + strings.ToLower(f.Search) + "%")
		where = append(where, "(lower(nom) LIKE "+p+" OR lower(prenom) LIKE "+p+" OR lower(email) LIKE "+p+")")
	}

	sql := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY nom, prenom LIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) CountByRole(ctx context.Context) (map[Role]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT role, count(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	defer rows.Close()

	counts := map[Role]int{}
	for rows.Next() {
		var role Role
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		counts[role] = n
	}
	return counts, rows.Err()
}
