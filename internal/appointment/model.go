package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

// MaxMotifLength bounds the free-text reason of a rendez-vous, in runes.
const MaxMotifLength = 500

const (
	StatusUpcoming  Status = "à venir"
	StatusPast      Status = "passé"
	StatusCancelled Status = "annulé"
)

// Statuses lists every status name, for request validation.
var Statuses = []string{string(StatusUpcoming), string(StatusPast), string(StatusCancelled)}

func (s Status) Valid() bool {
	switch s {
	case StatusUpcoming, StatusPast, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a rendez-vous may move from s to next.
// Only upcoming rendez-vous change state; past and cancelled are final.
func (s Status) CanTransition(next Status) bool {
	return s == StatusUpcoming && (next == StatusPast || next == StatusCancelled)
}

// RendezVous keeps the date and time as the strings the patient picked
// (YYYY-MM-DD, HH:MM); they are read in the clinic time zone.
type RendezVous struct {
	ID        uuid.UUID `json:"id"`
	Date      string    `json:"date"`
	Heure     string    `json:"heure"`
	Motif     string    `json:"motif"`
	Statut    Status    `json:"statut"`
	PatientID uuid.UUID `json:"patient_id"`
	MedecinID uuid.UUID `json:"medecin_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Party struct {
	ID         uuid.UUID `json:"id"`
	Nom        string    `json:"nom"`
	Prenom     string    `json:"prenom"`
	Email      string    `json:"email,omitempty"`
	Specialite string    `json:"specialite,omitempty"`
}

func (p Party) FullName() string {
	if p.Prenom == "" {
		return p.Nom
	}
	return p.Prenom + " " + p.Nom
}

// Detail is a rendez-vous with both parties resolved.
type Detail struct {
	RendezVous
	Patient Party `json:"patient"`
	Medecin Party `json:"medecin"`
}

// Booked is returned by Book. Notified is false when the confirmation
// email failed; the rendez-vous is kept either way.
type Booked struct {
	*Detail
	Notified bool `json:"notified"`
}

// Filter narrows admin listings. Zero values mean "any".
type Filter struct {
	Statut    Status
	MedecinID *uuid.UUID
	PatientID *uuid.UUID
	Date      string
	Limit     int
	Offset    int
}

// ParseSlot reads a stored date and time in loc.
func ParseSlot(date, heure string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+heure, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse slot %q %q: %w", date, heure, err)
	}
	return t, nil
}
