package activity

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type memRepo struct {
	rows []Activity
	err  error
}

func (m *memRepo) Insert(_ context.Context, a Activity) error {
	if m.err != nil {
		return m.err
	}
	a.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, a)
	return nil
}

func (m *memRepo) ListRecent(_ context.Context, limit, offset int) ([]Activity, error) {
	if offset >= len(m.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.rows) {
		end = len(m.rows)
	}
	return m.rows[offset:end], nil
}

func TestRecordStoresPayload(t *testing.T) {
	repo := &memRepo{}
	rec := NewRecorder(repo)
	actor, entity := uuid.New(), uuid.New()

	rec.Record(context.Background(), actor, ActionAppointmentBooked, "rendezvous", entity, map[string]any{"date": "2026-03-12"})

	if len(repo.rows) != 1 {
		t.Fatalf("expected one row, got %d", len(repo.rows))
	}
	got := repo.rows[0]
	if got.UserID == nil || *got.UserID != actor || got.EntityID == nil || *got.EntityID != entity {
		t.Fatalf("ids not stored: %+v", got)
	}
	var payload map[string]string
	if err := json.Unmarshal(got.Payload, &payload); err != nil || payload["date"] != "2026-03-12" {
		t.Fatalf("unexpected payload %s (%v)", got.Payload, err)
	}
}

func TestRecordSystemActorAndFailures(t *testing.T) {
	repo := &memRepo{}
	rec := NewRecorder(repo)

	rec.Record(context.Background(), uuid.Nil, ActionAppointmentPast, "rendezvous", uuid.New(), nil)
	if repo.rows[0].UserID != nil {
		t.Fatal("system actions must not carry a user id")
	}

	repo.err = errors.New("db down")
	// must not panic or surface the error
	rec.Record(context.Background(), uuid.Nil, ActionAppointmentPast, "rendezvous", uuid.New(), nil)

	var nilRec *Recorder
	nilRec.Record(context.Background(), uuid.Nil, ActionLogin, "user", uuid.Nil, nil)
}

func TestListRecentClampsLimit(t *testing.T) {
	repo := &memRepo{}
	rec := NewRecorder(repo)
	for i := 0; i < 60; i++ {
		rec.Record(context.Background(), uuid.Nil, ActionLogin, "user", uuid.New(), nil)
	}
	got, err := rec.ListRecent(context.Background(), 0, -3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 50 {
		t.Fatalf("expected default limit 50, got %d", len(got))
	}
}
