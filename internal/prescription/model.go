package prescription

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Ordonnance is a prescription written by a doctor for a patient.
// Traitements, Duree and Analyses are optional.
type Ordonnance struct {
	ID          uuid.UUID `json:"id"`
	Contenu     string    `json:"contenu"`
	Traitements string    `json:"traitements,omitempty"`
	Duree       string    `json:"duree,omitempty"`
	Analyses    string    `json:"analyses,omitempty"`
	PatientID   uuid.UUID `json:"patient_id"`
	MedecinID   uuid.UUID `json:"medecin_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PlainText joins the prescription fields into one block, as sent for
// explanation.
func (o *Ordonnance) PlainText() string {
	parts := []string{o.Contenu}
	if o.Traitements != "" {
		parts = append(parts, "Traitements : "+o.Traitements)
	}
	if o.Duree != "" {
		parts = append(parts, "Durée : "+o.Duree)
	}
	if o.Analyses != "" {
		parts = append(parts, "Analyses : "+o.Analyses)
	}
	return strings.Join(parts, "\n")
}

// Created is returned on creation; Notified is false when the email with
// the document could not be sent. The row is stored either way.
type Created struct {
	*Ordonnance
	Notified bool `json:"notified"`
}
