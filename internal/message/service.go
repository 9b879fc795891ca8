package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-management/internal/activity"
	redisclient "github.com/hackgods/clinic-management/internal/redis"
	"github.com/hackgods/clinic-management/internal/user"
	"github.com/hackgods/clinic-management/internal/validation"
)

var (
	ErrRequestAlreadyPending = errors.New("a consultation request to this doctor is already pending")
	ErrRequestNotPending     = errors.New("consultation request is not pending")
	ErrForbidden             = errors.New("not allowed to act on this message")
	ErrNotConnected          = errors.New("no accepted consultation request with this user")
)

type Users interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetMedecin(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type Service struct {
	repo     Repository
	users    Users
	relay    redisclient.Relay
	activity *activity.Recorder
}

func NewService(repo Repository, users Users, relay redisclient.Relay, rec *activity.Recorder) *Service {
	return &Service{repo: repo, users: users, relay: relay, activity: rec}
}

const (
	defaultConversationLimit = 100
	maxConversationLimit     = 500
)

func validContenu(contenu string) error {
	v := validation.Violations{}
	validation.Required("contenu", contenu, v)
	return v.Err()
}

// SendRequest opens a consultation request from a patient to a doctor.
func (s *Service) SendRequest(ctx context.Context, patientID, medecinID uuid.UUID, contenu string) (*Message, error) {
	if err := validContenu(contenu); err != nil {
		return nil, err
	}
	patient, err := s.users.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	medecin, err := s.users.GetMedecin(ctx, medecinID)
	if err != nil {
		return nil, err
	}

	pending, err := s.repo.HasRequest(ctx, patient.ID, medecin.ID, RequestPending)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrRequestAlreadyPending
	}

	status := RequestPending
	m := &Message{
		ID:            uuid.New(),
		Contenu:       strings.TrimSpace(contenu),
		SenderRole:    user.RolePatient,
		SenderID:      patient.ID,
		ReceiverID:    medecin.ID,
		IsRequest:     true,
		RequestStatus: &status,
	}
	if err := s.repo.Insert(ctx, m); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, patient.ID, activity.ActionRequestSent, "message", m.ID, map[string]any{
		"medecin_id": medecin.ID.String(),
	})
	s.publish(ctx, EventMessage, m)
	return m, nil
}

// Accept marks a pending request as accepted and posts the doctor's
// acceptance message to the patient. The returned message is that reply.
func (s *Service) Accept(ctx context.Context, medecinID, requestID uuid.UUID) (*Message, error) {
	req, err := s.addressedRequest(ctx, medecinID, requestID)
	if err != nil {
		return nil, err
	}

	medecin, err := s.users.Get(ctx, medecinID)
	if err != nil {
		return nil, err
	}
	reply := &Message{
		ID:         uuid.New(),
		Contenu:    acceptanceText(medecin),
		SenderRole: user.RoleMedecin,
		SenderID:   medecinID,
		ReceiverID: req.SenderID,
	}
	req, err = s.repo.AcceptRequest(ctx, req.ID, reply)
	if err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			return nil, ErrRequestNotPending
		}
		return nil, fmt.Errorf("accept request: %w", err)
	}

	s.activity.Record(ctx, medecinID, activity.ActionRequestAccepted, "message", req.ID, map[string]any{
		"patient_id": req.SenderID.String(),
	})
	s.publish(ctx, EventRequest, req)
	s.publish(ctx, EventMessage, reply)
	return reply, nil
}

func (s *Service) Reject(ctx context.Context, medecinID, requestID uuid.UUID) (*Message, error) {
	req, err := s.decide(ctx, medecinID, requestID, RequestRejected)
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, medecinID, activity.ActionRequestRejected, "message", req.ID, map[string]any{
		"patient_id": req.SenderID.String(),
	})
	s.publish(ctx, EventRequest, req)
	return req, nil
}

// addressedRequest loads a consultation request sent to medecinID.
func (s *Service) addressedRequest(ctx context.Context, medecinID, requestID uuid.UUID) (*Message, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.IsRequest {
		return nil, ErrMessageNotFound
	}
	if req.ReceiverID != medecinID {
		return nil, ErrForbidden
	}
	return req, nil
}

func (s *Service) decide(ctx context.Context, medecinID, requestID uuid.UUID, to RequestStatus) (*Message, error) {
	req, err := s.addressedRequest(ctx, medecinID, requestID)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.SetRequestStatus(ctx, req.ID, RequestPending, to)
	if err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			return nil, ErrRequestNotPending
		}
		return nil, fmt.Errorf("update request status: %w", err)
	}
	return updated, nil
}

func acceptanceText(medecin *user.User) string {
	return fmt.Sprintf("Votre demande de consultation a été acceptée par le Dr %s. Vous pouvez désormais échanger des messages.", medecin.FullName())
}

// Send posts an ordinary message. Patients and doctors can write to each
// other once a request was accepted or when the doctor is the patient's
// assigned doctor. Admins can write to and be written to by anyone.
func (s *Service) Send(ctx context.Context, senderID, receiverID uuid.UUID, contenu string) (*Message, error) {
	v := validation.Violations{}
	validation.Required("contenu", contenu, v)
	if receiverID == uuid.Nil {
		v["receiver_id"] = "required"
	} else if receiverID == senderID {
		v["receiver_id"] = "not_allowed"
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	sender, err := s.users.Get(ctx, senderID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.users.Get(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if err := s.canMessage(ctx, sender, receiver); err != nil {
		return nil, err
	}

	m := &Message{
		ID:         uuid.New(),
		Contenu:    strings.TrimSpace(contenu),
		SenderRole: sender.Role,
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
	}
	if err := s.repo.Insert(ctx, m); err != nil {
		return nil, err
	}
	s.publish(ctx, EventMessage, m)
	return m, nil
}

func (s *Service) canMessage(ctx context.Context, a, b *user.User) error {
	if a.Role == user.RoleAdmin || b.Role == user.RoleAdmin {
		return nil
	}

	var patient, medecin *user.User
	switch {
	case a.Role == user.RolePatient && b.Role == user.RoleMedecin:
		patient, medecin = a, b
	case a.Role == user.RoleMedecin && b.Role == user.RolePatient:
		patient, medecin = b, a
	default:
		return ErrNotConnected
	}

	if patient.MedecinID != nil && *patient.MedecinID == medecin.ID {
		return nil
	}
	accepted, err := s.repo.HasRequest(ctx, patient.ID, medecin.ID, RequestAccepted)
	if err != nil {
		return err
	}
	if !accepted {
		return ErrNotConnected
	}
	return nil
}

func (s *Service) Conversation(ctx context.Context, userID, otherID uuid.UUID, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = defaultConversationLimit
	}
	if limit > maxConversationLimit {
		limit = maxConversationLimit
	}
	list, err := s.repo.Conversation(ctx, userID, otherID, limit)
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Service) Inbox(ctx context.Context, userID uuid.UUID) ([]Message, error) {
	return s.repo.Inbox(ctx, userID)
}

func (s *Service) PendingRequests(ctx context.Context, medecinID uuid.UUID) ([]Message, error) {
	return s.repo.PendingRequests(ctx, medecinID)
}

// Delete removes a message. Only its sender may delete it.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if m.SenderID != userID {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, EventDeleted, m)
	return nil
}

// Subscribe streams relay payloads addressed to userID until ctx is done.
func (s *Service) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan []byte, error) {
	return s.relay.Subscribe(ctx, userID)
}

// publish fans the event out to both participants. Delivery is best
// effort: the message is already stored.
func (s *Service) publish(ctx context.Context, typ string, m *Message) {
	if s.relay == nil {
		return
	}
	payload, err := json.Marshal(Event{Type: typ, Message: m})
	if err != nil {
		log.Printf("encode chat event: %v", err)
		return
	}
	for _, id := range []uuid.UUID{m.ReceiverID, m.SenderID} {
		if err := s.relay.Publish(ctx, id, payload); err != nil {
			log.Printf("failed to relay message %s to %s: %v", m.ID, id, err)
		}
	}
}
