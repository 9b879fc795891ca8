package prescription

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-management/internal/activity"
	"github.com/hackgods/clinic-management/internal/document"
	"github.com/hackgods/clinic-management/internal/user"
	"github.com/hackgods/clinic-management/internal/validation"
)

type memRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]Ordonnance
}

func newMemRepo() *memRepo { return &memRepo{rows: map[uuid.UUID]Ordonnance{}} }

func (m *memRepo) Create(_ context.Context, o *Ordonnance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.CreatedAt, o.UpdatedAt = time.Now(), time.Now()
	m.rows[o.ID] = *o
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id uuid.UUID) (*Ordonnance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.rows[id]
	if !ok {
		return nil, ErrOrdonnanceNotFound
	}
	return &o, nil
}

func (m *memRepo) Update(_ context.Context, o *Ordonnance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[o.ID]; !ok {
		return ErrOrdonnanceNotFound
	}
	m.rows[o.ID] = *o
	return nil
}

func (m *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return ErrOrdonnanceNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memRepo) ListByPatient(_ context.Context, id uuid.UUID) ([]Ordonnance, error) {
	return m.filter(func(o Ordonnance) bool { return o.PatientID == id }), nil
}

func (m *memRepo) ListByMedecin(_ context.Context, id uuid.UUID) ([]Ordonnance, error) {
	return m.filter(func(o Ordonnance) bool { return o.MedecinID == id }), nil
}

func (m *memRepo) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows), nil
}

func (m *memRepo) filter(keep func(Ordonnance) bool) []Ordonnance {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Ordonnance
	for _, o := range m.rows {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}

type fakeUsers map[uuid.UUID]*user.User

func (f fakeUsers) Get(_ context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (f fakeUsers) GetPatient(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := f.Get(ctx, id)
	if err != nil || u.Role != user.RolePatient {
		return nil, user.ErrNotPatient
	}
	return u, nil
}

type fakeNotifier struct {
	err  error
	sent []document.PrescriptionData
}

func (f *fakeNotifier) PrescriptionIssued(_ context.Context, _ string, d document.PrescriptionData) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, d)
	return nil
}

func (f *fakeNotifier) ClinicName() string { return "Clinique test" }

type nopActivity struct{}

func (nopActivity) Insert(context.Context, activity.Activity) error { return nil }
func (nopActivity) ListRecent(context.Context, int, int) ([]activity.Activity, error) {
	return nil, nil
}

type fixture struct {
	svc      *Service
	repo     *memRepo
	notifier *fakeNotifier
	medecin  *user.User
	patient  *user.User
}

func newFixture() *fixture {
	specialite := "Cardiologie"
	medecin := &user.User{ID: uuid.New(), Role: user.RoleMedecin, Nom: "Martin", Prenom: "Claire", Specialite: &specialite, IsActive: true}
	patient := &user.User{ID: uuid.New(), Role: user.RolePatient, Nom: "Durand", Prenom: "Paul", Email: "paul@x.fr", IsActive: true}
	users := fakeUsers{medecin.ID: medecin, patient.ID: patient}
	repo := newMemRepo()
	n := &fakeNotifier{}
	return &fixture{
		svc:      NewService(repo, users, n, activity.NewRecorder(nopActivity{})),
		repo:     repo,
		notifier: n,
		medecin:  medecin,
		patient:  patient,
	}
}

func TestCreateRoundTrip(t *testing.T) {
	f := newFixture()
	created, err := f.svc.Create(context.Background(), f.medecin.ID, Input{
		PatientID: f.patient.ID, Contenu: "Amoxicilline 1g", Duree: "7 jours",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created.Notified || len(f.notifier.sent) != 1 {
		t.Fatalf("expected one notification, notified=%v", created.Notified)
	}

	stored, err := f.repo.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.PatientID != f.patient.ID || stored.MedecinID != f.medecin.ID {
		t.Fatalf("relations not preserved: %+v", stored)
	}

	sent := f.notifier.sent[0]
	if sent.PatientName != "Paul Durand" || sent.MedecinName != "Claire Martin" || sent.Specialite != "Cardiologie" {
		t.Fatalf("unexpected document data %+v", sent)
	}
}

func TestCreateKeepsRowWhenNotificationFails(t *testing.T) {
	f := newFixture()
	f.notifier.err = errors.New("smtp down")

	created, err := f.svc.Create(context.Background(), f.medecin.ID, Input{PatientID: f.patient.ID, Contenu: "Repos"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Notified {
		t.Fatal("notified must be false when the mail fails")
	}
	if n, _ := f.repo.Count(context.Background()); n != 1 {
		t.Fatalf("row must stay committed, got %d rows", n)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), f.medecin.ID, Input{})
	var v validation.Violations
	if !errors.As(err, &v) || v["contenu"] == "" || v["patient_id"] == "" {
		t.Fatalf("expected violations, got %v", err)
	}

	_, err = f.svc.Create(context.Background(), f.medecin.ID, Input{PatientID: f.medecin.ID, Contenu: "x"})
	if !errors.Is(err, user.ErrNotPatient) {
		t.Fatalf("expected ErrNotPatient, got %v", err)
	}
}

func TestOnlyAuthorEdits(t *testing.T) {
	f := newFixture()
	created, _ := f.svc.Create(context.Background(), f.medecin.ID, Input{PatientID: f.patient.ID, Contenu: "A"})

	other := uuid.New()
	if _, err := f.svc.Update(context.Background(), other, created.ID, Input{Contenu: "B"}); !errors.Is(err, ErrNotAuthor) {
		t.Fatalf("expected ErrNotAuthor, got %v", err)
	}
	if err := f.svc.Delete(context.Background(), other, created.ID); !errors.Is(err, ErrNotAuthor) {
		t.Fatalf("expected ErrNotAuthor, got %v", err)
	}

	updated, err := f.svc.Update(context.Background(), f.medecin.ID, created.ID, Input{Contenu: "B", Duree: "3 jours"})
	if err != nil || updated.Contenu != "B" || updated.Duree != "3 jours" {
		t.Fatalf("update failed: %v %+v", err, updated)
	}
	if err := f.svc.Delete(context.Background(), f.medecin.ID, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestPatientAccess(t *testing.T) {
	f := newFixture()
	created, _ := f.svc.Create(context.Background(), f.medecin.ID, Input{PatientID: f.patient.ID, Contenu: "A"})

	if _, err := f.svc.GetForPatient(context.Background(), uuid.New(), created.ID); !errors.Is(err, ErrOrdonnanceNotFound) {
		t.Fatalf("foreign patient must not see the ordonnance, got %v", err)
	}

	out, err := f.svc.PDF(context.Background(), f.patient.ID, created.ID)
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatal("not a pdf")
	}

	list, _ := f.svc.ListByPatient(context.Background(), f.patient.ID)
	if len(list) != 1 {
		t.Fatalf("expected one ordonnance, got %d", len(list))
	}
}

func TestPlainText(t *testing.T) {
	o := Ordonnance{Contenu: "Doliprane", Duree: "5 jours"}
	if got := o.PlainText(); got != "Doliprane\nDurée : 5 jours" {
		t.Fatalf("unexpected text %q", got)
	}
}
