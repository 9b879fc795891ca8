package analysis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Insert(ctx context.Context, a *Analyse) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ordonnance_analyses
			(id, patient_id, ordonnance_id, filename, extracted_text, explanation, method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID, a.PatientID, a.OrdonnanceID, a.Filename, a.ExtractedText, a.Explanation, a.Method, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert ordonnance analyse: %w", err)
	}
	return nil
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Analyse, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, ordonnance_id, filename, extracted_text, explanation, method, created_at
		FROM ordonnance_analyses
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list ordonnance analyses: %w", err)
	}
	defer rows.Close()

	var result []Analyse
	for rows.Next() {
		var a Analyse
		if err := rows.Scan(&a.ID, &a.PatientID, &a.OrdonnanceID, &a.Filename, &a.ExtractedText, &a.Explanation, &a.Method, &a.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
