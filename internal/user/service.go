package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-management/internal/activity"
	"github.com/hackgods/clinic-management/internal/validation"
)

var (
	ErrNotMedecin      = errors.New("user is not an active doctor")
	ErrNotPatient      = errors.New("user is not a patient")
	ErrCannotSelfAdmin = errors.New("admins cannot deactivate or delete themselves")
)

type Service struct {
	repo     Repository
	activity *activity.Recorder
}

func NewService(repo Repository, rec *activity.Recorder) *Service {
	return &Service{repo: repo, activity: rec}
}

// CreateInput is used both by self registration (Role forced to patient)
// and by admins creating any role.
type CreateInput struct {
	Email         string     `json:"email"`
	Password      string     `json:"password"`
	Role          Role       `json:"role"`
	Nom           string     `json:"nom"`
	Prenom        string     `json:"prenom"`
	Telephone     string     `json:"telephone"`
	Adresse       string     `json:"adresse"`
	DateNaissance string     `json:"date_naissance"`
	Specialite    string     `json:"specialite"`
	MedecinID     *uuid.UUID `json:"medecin_id"`
}

// UpdateInput is a partial update; nil fields are left unchanged. Role and
// IsActive are only honoured for admin updates.
type UpdateInput struct {
	Email         *string    `json:"email"`
	Nom           *string    `json:"nom"`
	Prenom        *string    `json:"prenom"`
	Telephone     *string    `json:"telephone"`
	Adresse       *string    `json:"adresse"`
	DateNaissance *string    `json:"date_naissance"`
	Specialite    *string    `json:"specialite"`
	MedecinID     *uuid.UUID `json:"medecin_id"`
	Role          *Role      `json:"role"`
	IsActive      *bool      `json:"is_active"`
}

func (s *Service) Create(ctx context.Context, actor uuid.UUID, in CreateInput) (*User, error) {
	v := validation.Violations{}
	validation.Email("email", strings.TrimSpace(in.Email), v)
	ValidatePassword("password", in.Password, v)
	validation.Required("nom", in.Nom, v)
	validation.Required("prenom", in.Prenom, v)
	validation.OneOf("role", string(in.Role), Roles, v)
	if in.Role == RoleMedecin {
		validation.Required("specialite", in.Specialite, v)
	}
	if in.DateNaissance != "" {
		validation.Date("date_naissance", in.DateNaissance, v)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		ID:           uuid.New(),
		Email:        NormalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         in.Role,
		Nom:          strings.TrimSpace(in.Nom),
		Prenom:       strings.TrimSpace(in.Prenom),
		Telephone:    strings.TrimSpace(in.Telephone),
		Adresse:      strings.TrimSpace(in.Adresse),
		IsActive:     true,
	}
	if in.DateNaissance != "" {
		d, _ := time.Parse("2006-01-02", in.DateNaissance)
		u.DateNaissance = &d
	}
	switch in.Role {
	case RoleMedecin:
		spec := strings.TrimSpace(in.Specialite)
		u.Specialite = &spec
	case RolePatient:
		if in.MedecinID != nil {
			if _, err := s.GetMedecin(ctx, *in.MedecinID); err != nil {
				return nil, err
			}
			u.MedecinID = in.MedecinID
		}
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if actor == uuid.Nil {
		actor = u.ID
	}
	s.activity.Record(ctx, actor, activity.ActionUserCreated, "user", u.ID, map[string]any{"role": u.Role})
	return u, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load user by email: %w", err)
	}
	return u, nil
}

// GetMedecin loads an active doctor or returns ErrNotMedecin.
func (s *Service) GetMedecin(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrNotMedecin
		}
		return nil, err
	}
	if u.Role != RoleMedecin || !u.IsActive {
		return nil, ErrNotMedecin
	}
	return u, nil
}

// GetPatient loads a patient or returns ErrNotPatient.
func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrNotPatient
		}
		return nil, err
	}
	if u.Role != RolePatient {
		return nil, ErrNotPatient
	}
	return u, nil
}

// Update applies a partial update. asAdmin unlocks role and activation changes.
func (s *Service) Update(ctx context.Context, actor, id uuid.UUID, in UpdateInput, asAdmin bool) (*User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	v := validation.Violations{}
	if in.Email != nil {
		validation.Email("email", strings.TrimSpace(*in.Email), v)
		u.Email = NormalizeEmail(*in.Email)
	}
	if in.Nom != nil {
		validation.Required("nom", *in.Nom, v)
		u.Nom = strings.TrimSpace(*in.Nom)
	}
	if in.Prenom != nil {
		validation.Required("prenom", *in.Prenom, v)
		u.Prenom = strings.TrimSpace(*in.Prenom)
	}
	if in.Telephone != nil {
		u.Telephone = strings.TrimSpace(*in.Telephone)
	}
	if in.Adresse != nil {
		u.Adresse = strings.TrimSpace(*in.Adresse)
	}
	if in.DateNaissance != nil {
		if *in.DateNaissance == "" {
			u.DateNaissance = nil
		} else {
			validation.Date("date_naissance", *in.DateNaissance, v)
			if d, err := time.Parse("2006-01-02", *in.DateNaissance); err == nil {
				u.DateNaissance = &d
			}
		}
	}
	if asAdmin {
		if in.Role != nil {
			validation.OneOf("role", string(*in.Role), Roles, v)
			u.Role = *in.Role
		}
		if in.IsActive != nil {
			if !*in.IsActive && id == actor {
				return nil, ErrCannotSelfAdmin
			}
			u.IsActive = *in.IsActive
		}
	}
	if in.Specialite != nil && (asAdmin || u.Role == RoleMedecin) {
		spec := strings.TrimSpace(*in.Specialite)
		u.Specialite = &spec
	}
	if in.MedecinID != nil && (asAdmin || u.Role == RolePatient) {
		if _, err := s.GetMedecin(ctx, *in.MedecinID); err != nil {
			return nil, err
		}
		u.MedecinID = in.MedecinID
	}

	if u.Role == RoleMedecin && (u.Specialite == nil || *u.Specialite == "") {
		v["specialite"] = "required"
	}
	if u.Role != RoleMedecin {
		u.Specialite = nil
	}
	if u.Role != RolePatient {
		u.MedecinID = nil
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) || errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	s.activity.Record(ctx, actor, activity.ActionUserUpdated, "user", u.ID, nil)
	return u, nil
}

func (s *Service) SetActive(ctx context.Context, actor, id uuid.UUID, active bool) error {
	if !active && actor == id {
		return ErrCannotSelfAdmin
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("set user active: %w", err)
	}
	action := activity.ActionUserDeactivated
	if active {
		action = activity.ActionUserActivated
	}
	s.activity.Record(ctx, actor, action, "user", id, nil)
	return nil
}

func (s *Service) Delete(ctx context.Context, actor, id uuid.UUID) error {
	if actor == id {
		return ErrCannotSelfAdmin
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.activity.Record(ctx, actor, activity.ActionUserDeleted, "user", id, nil)
	return nil
}

func (s *Service) SetPassword(ctx context.Context, id uuid.UUID, password string) error {
	v := validation.Violations{}
	ValidatePassword("password", password, v)
	if err := v.Err(); err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, f Filter) ([]User, error) {
	if f.Limit <= 0 {
		f.Limit = 50 // default
	}
	if f.Limit > 200 {
		f.Limit = 200 // max
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	users, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ListMedecins lists active doctors, optionally restricted to one specialty.
func (s *Service) ListMedecins(ctx context.Context, specialite string) ([]Medecin, error) {
	users, err := s.List(ctx, Filter{Role: RoleMedecin, Specialite: specialite, ActiveOnly: true, Limit: 200})
	if err != nil {
		return nil, err
	}
	out := make([]Medecin, 0, len(users))
	for i := range users {
		if m, ok := users[i].AsMedecin(); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Service) ListPatientsOf(ctx context.Context, medecinID uuid.UUID) ([]User, error) {
	return s.List(ctx, Filter{Role: RolePatient, MedecinID: &medecinID, Limit: 200})
}

func (s *Service) CountByRole(ctx context.Context) (map[Role]int, error) {
	counts, err := s.repo.CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	return counts, nil
}
