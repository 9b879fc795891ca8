package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-management/internal/activity"
	"github.com/hackgods/clinic-management/internal/analysis"
	"github.com/hackgods/clinic-management/internal/appointment"
	"github.com/hackgods/clinic-management/internal/auth"
	"github.com/hackgods/clinic-management/internal/message"
	"github.com/hackgods/clinic-management/internal/prescription"
	"github.com/hackgods/clinic-management/internal/specialty"
	"github.com/hackgods/clinic-management/internal/user"
)

// The handlers depend on these narrow views of the domain services.

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*user.User, error)
}

type AuthService interface {
	Authenticator
	Register(ctx context.Context, in user.CreateInput) (*user.User, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	RequestReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	ChangePassword(ctx context.Context, userID uuid.UUID, current, newPassword string) error
}

type UserService interface {
	Create(ctx context.Context, actor uuid.UUID, in user.CreateInput) (*user.User, error)
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
	Update(ctx context.Context, actor, id uuid.UUID, in user.UpdateInput, asAdmin bool) (*user.User, error)
	SetActive(ctx context.Context, actor, id uuid.UUID, active bool) error
	Delete(ctx context.Context, actor, id uuid.UUID) error
	List(ctx context.Context, f user.Filter) ([]user.User, error)
	ListMedecins(ctx context.Context, specialite string) ([]user.Medecin, error)
	ListPatientsOf(ctx context.Context, medecinID uuid.UUID) ([]user.User, error)
	CountByRole(ctx context.Context) (map[user.Role]int, error)
}

type AppointmentService interface {
	Book(ctx context.Context, patientID uuid.UUID, in appointment.BookInput) (*appointment.Booked, error)
	Cancel(ctx context.Context, patientID, id uuid.UUID) (*appointment.RendezVous, error)
	UpdateStatus(ctx context.Context, medecinID, id uuid.UUID, to appointment.Status) (*appointment.RendezVous, error)
	AdminUpdate(ctx context.Context, adminID, id uuid.UUID, in appointment.AdminUpdateInput) (*appointment.RendezVous, error)
	Delete(ctx context.Context, adminID, id uuid.UUID) error
	PDF(ctx context.Context, patientID, id uuid.UUID) ([]byte, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]appointment.Detail, error)
	ListForMedecin(ctx context.Context, medecinID uuid.UUID, statut appointment.Status) ([]appointment.Detail, error)
	ListAll(ctx context.Context, f appointment.Filter) ([]appointment.Detail, error)
	CountByStatus(ctx context.Context) (map[appointment.Status]int, error)
}

type PrescriptionService interface {
	Create(ctx context.Context, medecinID uuid.UUID, in prescription.Input) (*prescription.Created, error)
	Update(ctx context.Context, medecinID, id uuid.UUID, in prescription.Input) (*prescription.Ordonnance, error)
	Delete(ctx context.Context, medecinID, id uuid.UUID) error
	ListByMedecin(ctx context.Context, medecinID uuid.UUID) ([]prescription.Ordonnance, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]prescription.Ordonnance, error)
	PDF(ctx context.Context, patientID, id uuid.UUID) ([]byte, error)
	Count(ctx context.Context) (int, error)
}

type MessageService interface {
	SendRequest(ctx context.Context, patientID, medecinID uuid.UUID, contenu string) (*message.Message, error)
	Accept(ctx context.Context, medecinID, requestID uuid.UUID) (*message.Message, error)
	Reject(ctx context.Context, medecinID, requestID uuid.UUID) (*message.Message, error)
	Send(ctx context.Context, senderID, receiverID uuid.UUID, contenu string) (*message.Message, error)
	Conversation(ctx context.Context, userID, otherID uuid.UUID, limit int) ([]message.Message, error)
	Inbox(ctx context.Context, userID uuid.UUID) ([]message.Message, error)
	PendingRequests(ctx context.Context, medecinID uuid.UUID) ([]message.Message, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Subscribe(ctx context.Context, userID uuid.UUID) (<-chan []byte, error)
}

type TriageService interface {
	Triage(ctx context.Context, userID uuid.UUID, symptoms string) (*specialty.Result, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]specialty.ChatMessage, error)
}

type AnalysisService interface {
	Analyze(ctx context.Context, patientID uuid.UUID, filename string, data []byte) (*analysis.Analyse, error)
	Explain(ctx context.Context, patientID, ordonnanceID uuid.UUID) (*analysis.Analyse, error)
	List(ctx context.Context, patientID uuid.UUID) ([]analysis.Analyse, error)
}

type ActivityLister interface {
	ListRecent(ctx context.Context, limit, offset int) ([]activity.Activity, error)
}
