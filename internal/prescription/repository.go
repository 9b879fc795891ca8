package prescription

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrOrdonnanceNotFound = errors.New("ordonnance not found")

type Repository interface {
	Create(ctx context.Context, o *Ordonnance) error
	GetByID(ctx context.Context, id uuid.UUID) (*Ordonnance, error)
	Update(ctx context.Context, o *Ordonnance) error
	Delete(ctx context.Context, id uuid.UUID) error

	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Ordonnance, error)
	ListByMedecin(ctx context.Context, medecinID uuid.UUID) ([]Ordonnance, error)
	Count(ctx context.Context) (int, error)
}
