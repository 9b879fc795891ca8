package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

// Helpers

const rendezVousColumns = `id, date, heure, motif, statut, patient_id, medecin_id, created_at, updated_at`

const selectDetail = `
	SELECT r.id, r.date, r.heure, r.motif, r.statut, r.patient_id, r.medecin_id, r.created_at, r.updated_at,
	       p.nom, p.prenom, p.email,
	       m.nom, m.prenom, m.email, COALESCE(m.specialite, '')
	FROM rendezvous r
	JOIN users p ON p.id = r.patient_id
	JOIN users m ON m.id = r.medecin_id`

func scanRendezVous(row pgx.Row) (*RendezVous, error) {
	var r RendezVous

	err := row.Scan(
		&r.ID,
		&r.Date,
		&r.Heure,
		&r.Motif,
		&r.Statut,
		&r.PatientID,
		&r.MedecinID,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRendezVousNotFound
		}
		return nil, err
	}

	return &r, nil
}

func scanDetail(row pgx.Row) (*Detail, error) {
	var d Detail

	err := row.Scan(
		&d.ID,
		&d.Date,
		&d.Heure,
		&d.Motif,
		&d.Statut,
		&d.PatientID,
		&d.MedecinID,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.Patient.Nom,
		&d.Patient.Prenom,
		&d.Patient.Email,
		&d.Medecin.Nom,
		&d.Medecin.Prenom,
		&d.Medecin.Email,
		&d.Medecin.Specialite,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRendezVousNotFound
		}
		return nil, err
	}

	d.Patient.ID = d.PatientID
	d.Medecin.ID = d.MedecinID
	return &d, nil
}

// Interface methods

func (r *PgRepository) Create(ctx context.Context, rv *RendezVous) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO rendezvous (id, date, heure, motif, statut, patient_id, medecin_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING created_at, updated_at
	`, rv.ID, rv.Date, rv.Heure, rv.Motif, rv.Statut, rv.PatientID, rv.MedecinID)

	if err := row.Scan(&rv.CreatedAt, &rv.UpdatedAt); err != nil {
		return fmt.Errorf("insert rendezvous: %w", err)
	}
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*RendezVous, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+rendezVousColumns+` FROM rendezvous WHERE id = $1`, id)
	return scanRendezVous(row)
}

func (r *PgRepository) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	return scanDetail(r.pool.QueryRow(ctx, selectDetail+` WHERE r.id = $1`, id))
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Detail, error) {
	return r.listDetails(ctx, selectDetail+` WHERE r.patient_id = $1 ORDER BY r.date DESC, r.heure DESC`, patientID)
}

func (r *PgRepository) ListByMedecin(ctx context.Context, medecinID uuid.UUID, statut Status) ([]Detail, error) {
	if statut == "" {
		return r.listDetails(ctx, selectDetail+` WHERE r.medecin_id = $1 ORDER BY r.date, r.heure`, medecinID)
	}
	return r.listDetails(ctx, selectDetail+` WHERE r.medecin_id = $1 AND r.statut = $2 ORDER BY r.date, r.heure`, medecinID, statut)
}

func (r *PgRepository) ListAll(ctx context.Context, f Filter) ([]Detail, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Statut != "" {
		where = append(where, "r.statut = "+arg(f.Statut))
	}
	if f.MedecinID != nil {
		where = append(where, "r.medecin_id = "+arg(*f.MedecinID))
	}
	if f.PatientID != nil {
		where = append(where, "r.patient_id = "+arg(*f.PatientID))
	}
	if f.Date != "" {
		where = append(where, "r.date = "+arg(f.Date))
	}

	sql := selectDetail
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY r.date DESC, r.heure DESC LIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset)

	return r.listDetails(ctx, sql, args...)
}

func (r *PgRepository) FindUpcomingForSlot(ctx context.Context, medecinID uuid.UUID, date, heure string) (*RendezVous, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+rendezVousColumns+`
		FROM rendezvous
		WHERE medecin_id = $1 AND date = $2 AND heure = $3 AND statut = 'à venir'
		LIMIT 1
	`, medecinID, date, heure)
	return scanRendezVous(row)
}

func (r *PgRepository) Update(ctx context.Context, rv *RendezVous) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE rendezvous
		SET date = $2,
		    heure = $3,
		    motif = $4,
		    statut = $5,
		    medecin_id = $6,
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, rv.ID, rv.Date, rv.Heure, rv.Motif, rv.Statut, rv.MedecinID)
	if err := row.Scan(&rv.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRendezVousNotFound
		}
		return fmt.Errorf("update rendezvous: %w", err)
	}
	return nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*RendezVous, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE rendezvous
		SET statut = $2,
		    updated_at = now()
		WHERE id = $1
		  AND statut = $3
		RETURNING `+rendezVousColumns, id, to, from)

	return scanRendezVous(row)
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rendezvous WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rendezvous: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRendezVousNotFound
	}
	return nil
}

func (r *PgRepository) ListUpcoming(ctx context.Context) ([]RendezVous, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+rendezVousColumns+`
		FROM rendezvous
		WHERE statut = 'à venir'
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RendezVous
	for rows.Next() {
		rv, err := scanRendezVous(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rv)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT statut, count(*) FROM rendezvous GROUP BY statut`)
	if err != nil {
		return nil, fmt.Errorf("count rendezvous: %w", err)
	}
	defer rows.Close()

	counts := map[Status]int{}
	for rows.Next() {
		var s Status
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		counts[s] = n
	}
	return counts, rows.Err()
}

func (r *PgRepository) listDetails(ctx context.Context, sql string, args ...any) ([]Detail, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list rendezvous: %w", err)
	}
	defer rows.Close()

	var result []Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
