package message

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-management/internal/user"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

// Message is either an ordinary message or a consultation request
// (IsRequest). RequestStatus is nil for ordinary messages.
type Message struct {
	ID            uuid.UUID      `json:"id"`
	Contenu       string         `json:"contenu"`
	SenderRole    user.Role      `json:"sender_role"`
	SenderID      uuid.UUID      `json:"sender_id"`
	ReceiverID    uuid.UUID      `json:"receiver_id"`
	IsRequest     bool           `json:"is_request"`
	RequestStatus *RequestStatus `json:"request_status,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Counterpart is the other side of the conversation for userID.
func (m *Message) Counterpart(userID uuid.UUID) uuid.UUID {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Event is what the relay carries to connected clients.
type Event struct {
	Type    string   `json:"type"`
	Message *Message `json:"message"`
}

const (
	EventMessage = "message"
	EventRequest = "request"
	EventDeleted = "deleted"
)
