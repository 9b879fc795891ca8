package prescription

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-management/internal/activity"
	"github.com/hackgods/clinic-management/internal/document"
	"github.com/hackgods/clinic-management/internal/user"
	"github.com/hackgods/clinic-management/internal/validation"
)

// ErrNotAuthor is returned when a doctor edits a prescription written by
// somebody else.
var ErrNotAuthor = errors.New("ordonnance belongs to another doctor")

type Users interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type Notifier interface {
	PrescriptionIssued(ctx context.Context, to string, d document.PrescriptionData) error
	ClinicName() string
}

type Service struct {
	repo     Repository
	users    Users
	notifier Notifier
	activity *activity.Recorder
}

func NewService(repo Repository, users Users, notifier Notifier, rec *activity.Recorder) *Service {
	return &Service{repo: repo, users: users, notifier: notifier, activity: rec}
}

type Input struct {
	PatientID   uuid.UUID `json:"patient_id"`
	Contenu     string    `json:"contenu"`
	Traitements string    `json:"traitements"`
	Duree       string    `json:"duree"`
	Analyses    string    `json:"analyses"`
}

func (in Input) validate(withPatient bool) error {
	v := validation.Violations{}
	validation.Required("contenu", in.Contenu, v)
	if withPatient && in.PatientID == uuid.Nil {
		v["patient_id"] = "required"
	}
	return v.Err()
}

// Create stores the prescription then emails it as a PDF to the patient.
func (s *Service) Create(ctx context.Context, medecinID uuid.UUID, in Input) (*Created, error) {
	if err := in.validate(true); err != nil {
		return nil, err
	}
	patient, err := s.users.GetPatient(ctx, in.PatientID)
	if err != nil {
		return nil, err
	}

	o := &Ordonnance{
		ID:          uuid.New(),
		Contenu:     strings.TrimSpace(in.Contenu),
		Traitements: strings.TrimSpace(in.Traitements),
		Duree:       strings.TrimSpace(in.Duree),
		Analyses:    strings.TrimSpace(in.Analyses),
		PatientID:   patient.ID,
		MedecinID:   medecinID,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create ordonnance: %w", err)
	}
	s.activity.Record(ctx, medecinID, activity.ActionPrescription, "ordonnance", o.ID, map[string]any{
		"patient_id": patient.ID.String(),
	})

	notified := true
	data, err := s.documentData(ctx, o, patient)
	if err == nil {
		err = s.notifier.PrescriptionIssued(ctx, patient.Email, data)
	}
	if err != nil {
		notified = false
		log.Printf("failed to send ordonnance %s to %s: %v", o.ID, patient.Email, err)
		s.activity.Record(ctx, medecinID, activity.ActionNotificationFailed, "ordonnance", o.ID, map[string]any{
			"error": err.Error(),
		})
	}

	return &Created{Ordonnance: o, Notified: notified}, nil
}

func (s *Service) Update(ctx context.Context, medecinID, id uuid.UUID, in Input) (*Ordonnance, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}
	o, err := s.owned(ctx, medecinID, id)
	if err != nil {
		return nil, err
	}

	o.Contenu = strings.TrimSpace(in.Contenu)
	o.Traitements = strings.TrimSpace(in.Traitements)
	o.Duree = strings.TrimSpace(in.Duree)
	o.Analyses = strings.TrimSpace(in.Analyses)
	if err := s.repo.Update(ctx, o); err != nil {
		if errors.Is(err, ErrOrdonnanceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update ordonnance: %w", err)
	}
	s.activity.Record(ctx, medecinID, activity.ActionPrescriptionEdit, "ordonnance", o.ID, nil)
	return o, nil
}

func (s *Service) Delete(ctx context.Context, medecinID, id uuid.UUID) error {
	if _, err := s.owned(ctx, medecinID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrOrdonnanceNotFound) {
			return err
		}
		return fmt.Errorf("delete ordonnance: %w", err)
	}
	s.activity.Record(ctx, medecinID, activity.ActionPrescriptionDelete, "ordonnance", id, nil)
	return nil
}

func (s *Service) ListByMedecin(ctx context.Context, medecinID uuid.UUID) ([]Ordonnance, error) {
	list, err := s.repo.ListByMedecin(ctx, medecinID)
	if err != nil {
		return nil, fmt.Errorf("list ordonnances by medecin: %w", err)
	}
	return list, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Ordonnance, error) {
	list, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list ordonnances by patient: %w", err)
	}
	return list, nil
}

// GetForPatient returns the prescription only if it was written for the
// patient; other ids look missing.
func (s *Service) GetForPatient(ctx context.Context, patientID, id uuid.UUID) (*Ordonnance, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrdonnanceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load ordonnance: %w", err)
	}
	if o.PatientID != patientID {
		return nil, ErrOrdonnanceNotFound
	}
	return o, nil
}

// PDF renders the patient's copy of a prescription.
func (s *Service) PDF(ctx context.Context, patientID, id uuid.UUID) ([]byte, error) {
	o, err := s.GetForPatient(ctx, patientID, id)
	if err != nil {
		return nil, err
	}
	patient, err := s.users.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	data, err := s.documentData(ctx, o, patient)
	if err != nil {
		return nil, err
	}
	return document.PrescriptionPDF(data)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *Service) owned(ctx context.Context, medecinID, id uuid.UUID) (*Ordonnance, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrdonnanceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load ordonnance: %w", err)
	}
	if o.MedecinID != medecinID {
		return nil, ErrNotAuthor
	}
	return o, nil
}

func (s *Service) documentData(ctx context.Context, o *Ordonnance, patient *user.User) (document.PrescriptionData, error) {
	medecin, err := s.users.Get(ctx, o.MedecinID)
	if err != nil {
		return document.PrescriptionData{}, fmt.Errorf("load prescribing doctor: %w", err)
	}
	d := document.PrescriptionData{
		ClinicName:  s.notifier.ClinicName(),
		Reference:   o.ID.String()[:8],
		PatientName: patient.FullName(),
		MedecinName: medecin.FullName(),
		Contenu:     o.Contenu,
		Traitements: o.Traitements,
		Duree:       o.Duree,
		Analyses:    o.Analyses,
		IssuedAt:    o.CreatedAt,
	}
	if medecin.Specialite != nil {
		d.Specialite = *medecin.Specialite
	}
	return d, nil
}
