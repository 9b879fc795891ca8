package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleMedecin Role = "medecin"
	RoleAdmin   Role = "admin"
)

// Roles lists every role name, for request validation.
var Roles = []string{string(RolePatient), string(RoleMedecin), string(RoleAdmin)}

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleMedecin, RoleAdmin:
		return true
	}
	return false
}

// User is the single identity for every role. Doctor-only fields
// (Specialite) and patient-only fields (MedecinID) are nil otherwise.
type User struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	Role          Role       `json:"role"`
	Nom           string     `json:"nom"`
	Prenom        string     `json:"prenom"`
	Telephone     string     `json:"telephone,omitempty"`
	Adresse       string     `json:"adresse,omitempty"`
	DateNaissance *time.Time `json:"date_naissance,omitempty"`
	Specialite    *string    `json:"specialite,omitempty"`
	MedecinID     *uuid.UUID `json:"medecin_id,omitempty"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.Prenom + " " + u.Nom)
}

// Medecin is the public, role-scoped view of a doctor.
type Medecin struct {
	ID         uuid.UUID `json:"id"`
	Nom        string    `json:"nom"`
	Prenom     string    `json:"prenom"`
	Email      string    `json:"email"`
	Telephone  string    `json:"telephone,omitempty"`
	Specialite string    `json:"specialite"`
}

// AsMedecin returns the doctor view; ok is false for other roles.
func (u *User) AsMedecin() (Medecin, bool) {
	if u.Role != RoleMedecin {
		return Medecin{}, false
	}
	m := Medecin{
		ID:        u.ID,
		Nom:       u.Nom,
		Prenom:    u.Prenom,
		Email:     u.Email,
		Telephone: u.Telephone,
	}
	if u.Specialite != nil {
		m.Specialite = *u.Specialite
	}
	return m, true
}

// Filter narrows List. Zero values mean "any".
type Filter struct {
	Role       Role
	Specialite string
	MedecinID  *uuid.UUID
	ActiveOnly bool
	Search     string
	Limit      int
	Offset     int
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
