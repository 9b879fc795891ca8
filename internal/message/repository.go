package message

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrMessageNotFound = errors.New("message not found")

type Repository interface {
	Insert(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*Message, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Conversation lists messages between a and b, oldest first.
	Conversation(ctx context.Context, a, b uuid.UUID, limit int) ([]Message, error)
	// Inbox returns the latest message per counterpart, newest first.
	Inbox(ctx context.Context, userID uuid.UUID) ([]Message, error)

	PendingRequests(ctx context.Context, medecinID uuid.UUID) ([]Message, error)
	HasRequest(ctx context.Context, patientID, medecinID uuid.UUID, status RequestStatus) (bool, error)
	// SetRequestStatus only applies when the request is still in from;
	// otherwise ErrMessageNotFound is returned.
	SetRequestStatus(ctx context.Context, id uuid.UUID, from, to RequestStatus) (*Message, error)
	// AcceptRequest moves a pending request to accepted and stores reply,
	// both or neither. A request that is no longer pending gives
	// ErrMessageNotFound.
	AcceptRequest(ctx context.Context, id uuid.UUID, reply *Message) (*Message, error)
}
