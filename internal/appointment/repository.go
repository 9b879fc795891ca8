package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrRendezVousNotFound = errors.New("rendez-vous not found")

// Repository contains all DB interactions needed by the service.
type Repository interface {
	Create(ctx context.Context, r *RendezVous) error
	GetByID(ctx context.Context, id uuid.UUID) (*RendezVous, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error)

	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Detail, error)
	ListByMedecin(ctx context.Context, medecinID uuid.UUID, statut Status) ([]Detail, error)
	ListAll(ctx context.Context, f Filter) ([]Detail, error)

	// For conflict checks
	FindUpcomingForSlot(ctx context.Context, medecinID uuid.UUID, date, heure string) (*RendezVous, error)

	Update(ctx context.Context, r *RendezVous) error
	// UpdateStatus only applies when the row is still in from; otherwise
	// ErrRendezVousNotFound is returned.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*RendezVous, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Status sweep
	ListUpcoming(ctx context.Context) ([]RendezVous, error)

	CountByStatus(ctx context.Context) (map[Status]int, error)
}
