package appointment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-management/internal/activity"
	"github.com/hackgods/clinic-management/internal/document"
	redisclient "github.com/hackgods/clinic-management/internal/redis"
	"github.com/hackgods/clinic-management/internal/user"
	"github.com/hackgods/clinic-management/internal/validation"
)

var (
	ErrSlotTaken         = errors.New("doctor already has a rendez-vous at this time")
	ErrSlotBeingBooked   = errors.New("slot is currently being booked, please retry")
	ErrSlotInPast        = errors.New("rendez-vous must be in the future")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotOwner          = errors.New("rendez-vous belongs to someone else")
)

type Users interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetMedecin(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type Notifier interface {
	AppointmentBooked(ctx context.Context, to string, d document.AppointmentData) error
	AppointmentCancelled(ctx context.Context, to string, d document.AppointmentData) error
	ClinicName() string
}

// Deps wires a Service. SweepLocker defaults to Locker.
type Deps struct {
	Repo        Repository
	Users       Users
	Locker      redisclient.Locker
	SweepLocker redisclient.Locker
	Notifier    Notifier
	Activity    *activity.Recorder
	Location    *time.Location
}

type Service struct {
	repo        Repository
	users       Users
	locker      redisclient.Locker
	sweepLocker redisclient.Locker
	notifier    Notifier
	activity    *activity.Recorder
	loc         *time.Location
	now         func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		repo:        d.Repo,
		users:       d.Users,
		locker:      d.Locker,
		sweepLocker: d.SweepLocker,
		notifier:    d.Notifier,
		activity:    d.Activity,
		loc:         d.Location,
		now:         time.Now,
	}
	if s.sweepLocker == nil {
		s.sweepLocker = s.locker
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s
}

type BookInput struct {
	MedecinID uuid.UUID `json:"medecin_id"`
	Date      string    `json:"date"`
	Heure     string    `json:"heure"`
	Motif     string    `json:"motif"`
}

func (in BookInput) validate() error {
	v := validation.Violations{}
	if in.MedecinID == uuid.Nil {
		v["medecin_id"] = "required"
	}
	validation.Date("date", in.Date, v)
	validation.Clock("heure", in.Heure, v)
	validation.MaxLength("motif", in.Motif, MaxMotifLength, v)
	return v.Err()
}

// Book reserves a doctor's slot for a patient.
// It uses a distributed lock so that concurrent requests for the same slot
// cannot both create a rendez-vous.
func (s *Service) Book(ctx context.Context, patientID uuid.UUID, in BookInput) (*Booked, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	start, err := ParseSlot(in.Date, in.Heure, s.loc)
	if err != nil {
		return nil, err
	}
	if !start.After(s.now()) {
		return nil, ErrSlotInPast
	}

	patient, err := s.users.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	medecin, err := s.users.GetMedecin(ctx, in.MedecinID)
	if err != nil {
		return nil, err
	}

	var created *RendezVous

	err = s.locker.WithLock(ctx, redisclient.SlotLockName(medecin.ID, in.Date, in.Heure), func(lockCtx context.Context) error {
		// Inside the critical section re-check for an upcoming rendez-vous in this slot
		existing, err := s.repo.FindUpcomingForSlot(lockCtx, medecin.ID, in.Date, in.Heure)
		if err != nil && !errors.Is(err, ErrRendezVousNotFound) {
			return fmt.Errorf("check slot: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		rv := &RendezVous{
			ID:        uuid.New(),
			Date:      in.Date,
			Heure:     in.Heure,
			Motif:     strings.TrimSpace(in.Motif),
			Statut:    StatusUpcoming,
			PatientID: patient.ID,
			MedecinID: medecin.ID,
		}
		if err := s.repo.Create(lockCtx, rv); err != nil {
			return fmt.Errorf("create rendezvous: %w", err)
		}
		created = rv
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.activity.Record(ctx, patient.ID, activity.ActionAppointmentBooked, "rendezvous", created.ID, map[string]any{
		"medecin_id": medecin.ID.String(),
		"date":       created.Date,
		"heure":      created.Heure,
	})

	detail := &Detail{RendezVous: *created, Patient: partyOf(patient), Medecin: partyOf(medecin)}
	notified := true
	if err := s.notifier.AppointmentBooked(ctx, patient.Email, s.documentData(detail)); err != nil {
		notified = false
		log.Printf("failed to send confirmation for rendezvous %s: %v", created.ID, err)
		s.activity.Record(ctx, patient.ID, activity.ActionNotificationFailed, "rendezvous", created.ID, map[string]any{
			"error": err.Error(),
		})
	}

	return &Booked{Detail: detail, Notified: notified}, nil
}

// Cancel lets a patient cancel one of their upcoming rendez-vous.
func (s *Service) Cancel(ctx context.Context, patientID, id uuid.UUID) (*RendezVous, error) {
	rv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rv.PatientID != patientID {
		return nil, ErrRendezVousNotFound
	}
	return s.transition(ctx, patientID, rv, StatusCancelled)
}

// UpdateStatus is the doctor's status change on one of their rendez-vous.
func (s *Service) UpdateStatus(ctx context.Context, medecinID, id uuid.UUID, to Status) (*RendezVous, error) {
	if !to.Valid() {
		return nil, validation.Violations{"statut": "not_allowed"}
	}
	rv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rv.MedecinID != medecinID {
		return nil, ErrNotOwner
	}
	return s.transition(ctx, medecinID, rv, to)
}

func (s *Service) transition(ctx context.Context, actor uuid.UUID, rv *RendezVous, to Status) (*RendezVous, error) {
	if !rv.Statut.CanTransition(to) {
		return nil, ErrInvalidTransition
	}
	updated, err := s.repo.UpdateStatus(ctx, rv.ID, rv.Statut, to)
	if err != nil {
		if errors.Is(err, ErrRendezVousNotFound) {
			// changed since it was loaded
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update rendezvous status: %w", err)
	}

	s.activity.Record(ctx, actor, activity.ActionAppointmentStatus, "rendezvous", updated.ID, map[string]any{
		"from": rv.Statut,
		"to":   to,
	})
	if to == StatusCancelled {
		s.notifyCancelled(ctx, updated.ID)
	}
	return updated, nil
}

func (s *Service) notifyCancelled(ctx context.Context, id uuid.UUID) {
	d, err := s.repo.GetDetail(ctx, id)
	if err == nil {
		err = s.notifier.AppointmentCancelled(ctx, d.Patient.Email, s.documentData(d))
	}
	if err != nil {
		log.Printf("failed to send cancellation for rendezvous %s: %v", id, err)
	}
}

type AdminUpdateInput struct {
	Date      *string    `json:"date"`
	Heure     *string    `json:"heure"`
	Motif     *string    `json:"motif"`
	Statut    *Status    `json:"statut"`
	MedecinID *uuid.UUID `json:"medecin_id"`
}

// AdminUpdate edits any field of a rendez-vous. Moving an upcoming
// rendez-vous to another slot takes the new slot's lock.
func (s *Service) AdminUpdate(ctx context.Context, adminID, id uuid.UUID, in AdminUpdateInput) (*RendezVous, error) {
	rv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *rv

	v := validation.Violations{}
	if in.Date != nil {
		validation.Date("date", *in.Date, v)
		rv.Date = *in.Date
	}
	if in.Heure != nil {
		validation.Clock("heure", *in.Heure, v)
		rv.Heure = *in.Heure
	}
	if in.Motif != nil {
		validation.MaxLength("motif", *in.Motif, MaxMotifLength, v)
		rv.Motif = strings.TrimSpace(*in.Motif)
	}
	if in.Statut != nil && *in.Statut != rv.Statut {
		validation.OneOf("statut", string(*in.Statut), Statuses, v)
		if in.Statut.Valid() && !rv.Statut.CanTransition(*in.Statut) {
			return nil, ErrInvalidTransition
		}
		rv.Statut = *in.Statut
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	if in.MedecinID != nil && *in.MedecinID != rv.MedecinID {
		if _, err := s.users.GetMedecin(ctx, *in.MedecinID); err != nil {
			return nil, err
		}
		rv.MedecinID = *in.MedecinID
	}

	moved := rv.Date != before.Date || rv.Heure != before.Heure || rv.MedecinID != before.MedecinID
	save := func(ctx context.Context) error {
		return s.repo.Update(ctx, rv)
	}
	if moved && rv.Statut == StatusUpcoming {
		err = s.locker.WithLock(ctx, redisclient.SlotLockName(rv.MedecinID, rv.Date, rv.Heure), func(lockCtx context.Context) error {
			existing, err := s.repo.FindUpcomingForSlot(lockCtx, rv.MedecinID, rv.Date, rv.Heure)
			if err != nil && !errors.Is(err, ErrRendezVousNotFound) {
				return fmt.Errorf("check slot: %w", err)
			}
			if existing != nil && existing.ID != rv.ID {
				return ErrSlotTaken
			}
			return save(lockCtx)
		})
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
	} else {
		err = save(ctx)
	}
	if err != nil {
		if errors.Is(err, ErrRendezVousNotFound) || errors.Is(err, ErrSlotTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("update rendezvous: %w", err)
	}

	s.activity.Record(ctx, adminID, activity.ActionAppointmentUpdated, "rendezvous", rv.ID, nil)
	if before.Statut != StatusCancelled && rv.Statut == StatusCancelled {
		s.notifyCancelled(ctx, rv.ID)
	}
	return rv, nil
}

func (s *Service) Delete(ctx context.Context, adminID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrRendezVousNotFound) {
			return err
		}
		return fmt.Errorf("delete rendezvous: %w", err)
	}
	s.activity.Record(ctx, adminID, activity.ActionAppointmentDeleted, "rendezvous", id, nil)
	return nil
}

// GetAppointment retrieves a fully hydrated rendez-vous by ID
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Detail, error) {
	d, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRendezVousNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get rendezvous: %w", err)
	}
	return d, nil
}

// PDF renders the confirmation document of one of the patient's rendez-vous.
func (s *Service) PDF(ctx context.Context, patientID, id uuid.UUID) ([]byte, error) {
	d, err := s.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.PatientID != patientID {
		return nil, ErrRendezVousNotFound
	}
	return document.AppointmentPDF(s.documentData(d))
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]Detail, error) {
	list, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list rendezvous by patient: %w", err)
	}
	return list, nil
}

func (s *Service) ListForMedecin(ctx context.Context, medecinID uuid.UUID, statut Status) ([]Detail, error) {
	if statut != "" && !statut.Valid() {
		return nil, validation.Violations{"statut": "not_allowed"}
	}
	list, err := s.repo.ListByMedecin(ctx, medecinID, statut)
	if err != nil {
		return nil, fmt.Errorf("list rendezvous by medecin: %w", err)
	}
	return list, nil
}

func (s *Service) ListAll(ctx context.Context, f Filter) ([]Detail, error) {
	if f.Limit <= 0 {
		f.Limit = 50 // default
	}
	if f.Limit > 200 {
		f.Limit = 200 // max
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Statut != "" && !f.Statut.Valid() {
		return nil, validation.Violations{"statut": "not_allowed"}
	}
	list, err := s.repo.ListAll(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list rendezvous: %w", err)
	}
	return list, nil
}

func (s *Service) CountByStatus(ctx context.Context) (map[Status]int, error) {
	return s.repo.CountByStatus(ctx)
}

// SweepPast marks every upcoming rendez-vous whose slot has started as
// past and returns how many rows changed. Only one process sweeps at a
// time; a run that cannot take the lock is skipped. A failed save aborts
// the run and the remaining rows are picked up next time.
func (s *Service) SweepPast(ctx context.Context) (int, error) {
	var transitioned int

	err := s.sweepLocker.WithLock(ctx, redisclient.SweepLockName, func(lockCtx context.Context) error {
		candidates, err := s.repo.ListUpcoming(lockCtx)
		if err != nil {
			return fmt.Errorf("list upcoming rendezvous: %w", err)
		}

		now := s.now()
		for _, rv := range candidates {
			start, err := ParseSlot(rv.Date, rv.Heure, s.loc)
			if err != nil {
				log.Printf("skipping rendezvous %s: %v", rv.ID, err)
				continue
			}
			if !start.Before(now) {
				continue
			}

			_, err = s.repo.UpdateStatus(lockCtx, rv.ID, StatusUpcoming, StatusPast)
			if errors.Is(err, ErrRendezVousNotFound) {
				// cancelled or deleted since listing
				continue
			}
			if err != nil {
				return fmt.Errorf("mark rendezvous %s past: %w", rv.ID, err)
			}
			transitioned++
			s.activity.Record(lockCtx, uuid.Nil, activity.ActionAppointmentPast, "rendezvous", rv.ID, nil)
		}
		return nil
	})
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		log.Printf("status sweep already running elsewhere, skipping")
		return 0, nil
	}
	return transitioned, err
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*RendezVous, error) {
	rv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRendezVousNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load rendezvous: %w", err)
	}
	return rv, nil
}

func (s *Service) documentData(d *Detail) document.AppointmentData {
	return document.AppointmentData{
		ClinicName:   s.notifier.ClinicName(),
		Reference:    d.ID.String()[:8],
		PatientName:  d.Patient.FullName(),
		PatientEmail: d.Patient.Email,
		MedecinName:  d.Medecin.FullName(),
		Specialite:   d.Medecin.Specialite,
		Date:         d.Date,
		Heure:        d.Heure,
		Motif:        d.Motif,
		Statut:       string(d.Statut),
		IssuedAt:     s.now().In(s.loc),
	}
}

func partyOf(u *user.User) Party {
	p := Party{ID: u.ID, Nom: u.Nom, Prenom: u.Prenom, Email: u.Email}
	if u.Specialite != nil {
		p.Specialite = *u.Specialite
	}
	return p
}
