package prescription

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const selectOrdonnance = `
	SELECT id, contenu, COALESCE(traitements, ''), COALESCE(duree, ''), COALESCE(analyses, ''),
	       patient_id, medecin_id, created_at, updated_at
	FROM ordonnances`

func scanOrdonnance(row pgx.Row) (*Ordonnance, error) {
	var o Ordonnance
	err := row.Scan(
		&o.ID,
		&o.Contenu,
		&o.Traitements,
		&o.Duree,
		&o.Analyses,
		&o.PatientID,
		&o.MedecinID,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrdonnanceNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *PgRepository) Create(ctx context.Context, o *Ordonnance) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO ordonnances (id, contenu, traitements, duree, analyses, patient_id, medecin_id)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7)
		RETURNING created_at, updated_at
	`, o.ID, o.Contenu, o.Traitements, o.Duree, o.Analyses, o.PatientID, o.MedecinID)
	if err := row.Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
		return fmt.Errorf("insert ordonnance: %w", err)
	}
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Ordonnance, error) {
	return scanOrdonnance(r.pool.QueryRow(ctx, selectOrdonnance+` WHERE id = $1`, id))
}

func (r *PgRepository) Update(ctx context.Context, o *Ordonnance) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE ordonnances
		SET contenu = $2,
		    traitements = NULLIF($3, ''),
		    duree = NULLIF($4, ''),
		    analyses = NULLIF($5, ''),
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, o.ID, o.Contenu, o.Traitements, o.Duree, o.Analyses)
	if err := row.Scan(&o.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrdonnanceNotFound
		}
		return fmt.Errorf("update ordonnance: %w", err)
	}
	return nil
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM ordonnances WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete ordonnance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrdonnanceNotFound
	}
	return nil
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Ordonnance, error) {
	return r.list(ctx, selectOrdonnance+` WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
}

func (r *PgRepository) ListByMedecin(ctx context.Context, medecinID uuid.UUID) ([]Ordonnance, error) {
	return r.list(ctx, selectOrdonnance+` WHERE medecin_id = $1 ORDER BY created_at DESC`, medecinID)
}

func (r *PgRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM ordonnances`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ordonnances: %w", err)
	}
	return n, nil
}

func (r *PgRepository) list(ctx context.Context, query string, args ...any) ([]Ordonnance, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ordonnances: %w", err)
	}
	defer rows.Close()

	var result []Ordonnance
	for rows.Next() {
		o, err := scanOrdonnance(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
