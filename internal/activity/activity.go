package activity

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
)

const (
	ActionUserCreated        = "user.created"
	ActionUserUpdated        = "user.updated"
	ActionUserActivated      = "user.activated"
	ActionUserDeactivated    = "user.deactivated"
	ActionUserDeleted        = "user.deleted"
	ActionLogin              = "auth.login"
	ActionPasswordReset      = "auth.password_reset"
	ActionAppointmentBooked  = "rendezvous.booked"
	ActionAppointmentStatus  = "rendezvous.status"
	ActionAppointmentPast    = "rendezvous.passe"
	ActionAppointmentUpdated = "rendezvous.updated"
	ActionAppointmentDeleted = "rendezvous.deleted"
	ActionPrescription       = "ordonnance.created"
	ActionPrescriptionEdit   = "ordonnance.updated"
	ActionPrescriptionDelete = "ordonnance.deleted"
	ActionRequestSent        = "demande.sent"
	ActionRequestAccepted    = "demande.accepted"
	ActionRequestRejected    = "demande.rejected"
	ActionNotificationFailed = "notification.failed"
)

// Activity is an append-only audit row.
type Activity struct {
	ID        int64           `json:"id"`
	UserID    *uuid.UUID      `json:"user_id,omitempty"`
	Action    string          `json:"action"`
	Entity    string          `json:"entity"`
	EntityID  *uuid.UUID      `json:"entity_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type Repository interface {
	Insert(ctx context.Context, a Activity) error
	ListRecent(ctx context.Context, limit, offset int) ([]Activity, error)
}

// Recorder writes activities without failing the caller: audit rows are
// best effort and errors are only logged.
type Recorder struct {
	repo Repository
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

func (r *Recorder) Record(ctx context.Context, actor uuid.UUID, action, entity string, entityID uuid.UUID, payload map[string]any) {
	if r == nil || r.repo == nil {
		return
	}

	var data []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			log.Printf("failed to marshal activity payload for %s: %v", action, err)
		} else {
			data = b
		}
	}

	a := Activity{
		Action:    action,
		Entity:    entity,
		Payload:   data,
		CreatedAt: time.Now(),
	}
	if actor != uuid.Nil {
		id := actor
		a.UserID = &id
	}
	if entityID != uuid.Nil {
		id := entityID
		a.EntityID = &id
	}

	if err := r.repo.Insert(ctx, a); err != nil {
		log.Printf("failed to insert activity %s for %s %s: %v", action, entity, entityID, err)
	}
}

func (r *Recorder) ListRecent(ctx context.Context, limit, offset int) ([]Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return r.repo.ListRecent(ctx, limit, offset)
}
