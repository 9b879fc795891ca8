package message

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/clinic-management/internal/activity"
	redisclient "github.com/hackgods/clinic-management/internal/redis"
	"github.com/hackgods/clinic-management/internal/user"
	"github.com/hackgods/clinic-management/internal/validation"
)

// memRepo mirrors the pg constraints: one pending request per pair, and an
// atomic accept.
type memRepo struct {
	mu   sync.Mutex
	rows []Message
	tick time.Time

	staleChecks bool  // HasRequest always answers false, as under a race
	replyErr    error // fails the reply insert of AcceptRequest
}

func isPending(r Message) bool {
	return r.IsRequest && r.RequestStatus != nil && *r.RequestStatus == RequestPending
}

func (m *memRepo) Insert(_ context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(msg)
}

func (m *memRepo) insertLocked(msg *Message) error {
	if isPending(*msg) {
		for _, r := range m.rows {
			if isPending(r) && r.SenderID == msg.SenderID && r.ReceiverID == msg.ReceiverID {
				return ErrRequestAlreadyPending
			}
		}
	}
	if m.tick.IsZero() {
		m.tick = time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	}
	m.tick = m.tick.Add(time.Second)
	msg.CreatedAt = m.tick
	m.rows = append(m.rows, *msg)
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id uuid.UUID) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, ErrMessageNotFound
}

func (m *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return ErrMessageNotFound
}

func (m *memRepo) Conversation(_ context.Context, a, b uuid.UUID, limit int) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Message
	for _, r := range m.rows {
		if (r.SenderID == a && r.ReceiverID == b) || (r.SenderID == b && r.ReceiverID == a) {
			out = append(out, r)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memRepo) Inbox(_ context.Context, userID uuid.UUID) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	latest := map[uuid.UUID]Message{}
	for _, r := range m.rows {
		if r.SenderID != userID && r.ReceiverID != userID {
			continue
		}
		latest[r.Counterpart(userID)] = r
	}
	var out []Message
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) PendingRequests(_ context.Context, medecinID uuid.UUID) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Message
	for _, r := range m.rows {
		if r.ReceiverID == medecinID && r.IsRequest && r.RequestStatus != nil && *r.RequestStatus == RequestPending {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo) HasRequest(_ context.Context, patientID, medecinID uuid.UUID, status RequestStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.staleChecks {
		return false, nil
	}
	for _, r := range m.rows {
		if r.SenderID == patientID && r.ReceiverID == medecinID && r.IsRequest && r.RequestStatus != nil && *r.RequestStatus == status {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) SetRequestStatus(_ context.Context, id uuid.UUID, from, to RequestStatus) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.ID == id && r.IsRequest && r.RequestStatus != nil && *r.RequestStatus == from {
			s := to
			m.rows[i].RequestStatus = &s
			out := m.rows[i]
			return &out, nil
		}
	}
	return nil, ErrMessageNotFound
}

func (m *memRepo) AcceptRequest(_ context.Context, id uuid.UUID, reply *Message) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.ID != id || !isPending(r) {
			continue
		}
		if m.replyErr != nil {
			return nil, m.replyErr
		}
		if err := m.insertLocked(reply); err != nil {
			return nil, err
		}
		s := RequestAccepted
		m.rows[i].RequestStatus = &s
		out := m.rows[i]
		return &out, nil
	}
	return nil, ErrMessageNotFound
}

type fakeUsers map[uuid.UUID]*user.User

func (f fakeUsers) Get(_ context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (f fakeUsers) GetMedecin(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := f.Get(ctx, id)
	if err != nil || u.Role != user.RoleMedecin {
		return nil, user.ErrNotMedecin
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

type captureRelay struct {
	mu     sync.Mutex
	events map[uuid.UUID][]Event
}

func (c *captureRelay) Publish(_ context.Context, userID uuid.UUID, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return err
	}
	if c.events == nil {
		c.events = map[uuid.UUID][]Event{}
	}
	c.events[userID] = append(c.events[userID], ev)
	return nil
}

func (c *captureRelay) Subscribe(context.Context, uuid.UUID) (<-chan []byte, error) {
	return nil, errors.New("not supported")
}

type nopActivity struct{}

func (nopActivity) Insert(context.Context, activity.Activity) error { return nil }
func (nopActivity) ListRecent(context.Context, int, int) ([]activity.Activity, error) {
	return nil, nil
}

type fixture struct {
	svc                        *Service
	repo                       *memRepo
	relay                      *captureRelay
	patient, assigned, medecin *user.User
	other, admin               *user.User
}

func newFixture(relay redisclient.Relay) *fixture {
	medecin := &user.User{ID: uuid.New(), Role: user.RoleMedecin, Nom: "Martin", Prenom: "Claire", IsActive: true}
	assigned := &user.User{ID: uuid.New(), Role: user.RoleMedecin, Nom: "Bernard", Prenom: "Luc", IsActive: true}
	patient := &user.User{ID: uuid.New(), Role: user.RolePatient, Nom: "Durand", Prenom: "Paul", MedecinID: &assigned.ID, IsActive: true}
	other := &user.User{ID: uuid.New(), Role: user.RolePatient, Nom: "Petit", Prenom: "Léa", IsActive: true}
	admin := &user.User{ID: uuid.New(), Role: user.RoleAdmin, Nom: "Admin", IsActive: true}
	users := fakeUsers{medecin.ID: medecin, assigned.ID: assigned, patient.ID: patient, other.ID: other, admin.ID: admin}

	f := &fixture{repo: &memRepo{}, patient: patient, assigned: assigned, medecin: medecin, other: other, admin: admin}
	if relay == nil {
		f.relay = &captureRelay{}
		relay = f.relay
	}
	f.svc = NewService(f.repo, users, relay, activity.NewRecorder(nopActivity{}))
	return f
}

func TestRequestAcceptHandshake(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	if _, err := f.svc.Send(ctx, f.patient.ID, f.medecin.ID, "Bonjour"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("messaging before acceptance must fail, got %v", err)
	}

	req, err := f.svc.SendRequest(ctx, f.patient.ID, f.medecin.ID, "Je souhaite une consultation")
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	if !req.IsRequest || *req.RequestStatus != RequestPending {
		t.Fatalf("unexpected request %+v", req)
	}
	if _, err := f.svc.SendRequest(ctx, f.patient.ID, f.medecin.ID, "encore"); !errors.Is(err, ErrRequestAlreadyPending) {
		t.Fatalf("expected ErrRequestAlreadyPending, got %v", err)
	}

	pending, _ := f.svc.PendingRequests(ctx, f.medecin.ID)
	if len(pending) != 1 || pending[0].ID != req.ID {
		t.Fatalf("pending requests: %+v", pending)
	}

	if _, err := f.svc.Accept(ctx, f.assigned.ID, req.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("only the addressed doctor may accept, got %v", err)
	}

	reply, err := f.svc.Accept(ctx, f.medecin.ID, req.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if reply.IsRequest || reply.SenderID != f.medecin.ID || reply.ReceiverID != f.patient.ID {
		t.Fatalf("unexpected acceptance message %+v", reply)
	}

	stored, _ := f.repo.GetByID(ctx, req.ID)
	if !stored.IsRequest || *stored.RequestStatus != RequestAccepted {
		t.Fatalf("request must stay a request and be accepted: %+v", stored)
	}

	if _, err := f.svc.Accept(ctx, f.medecin.ID, req.ID); !errors.Is(err, ErrRequestNotPending) {
		t.Fatalf("second accept must fail, got %v", err)
	}
	conv, _ := f.svc.Conversation(ctx, f.patient.ID, f.medecin.ID, 0)
	if len(conv) != 2 {
		t.Fatalf("expected request and a single acceptance message, got %d", len(conv))
	}

	if _, err := f.svc.Send(ctx, f.patient.ID, f.medecin.ID, "Merci docteur"); err != nil {
		t.Fatalf("messaging after acceptance: %v", err)
	}
	if _, err := f.svc.Send(ctx, f.medecin.ID, f.patient.ID, "Avec plaisir"); err != nil {
		t.Fatalf("doctor reply: %v", err)
	}
}

func TestReject(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	req, err := f.svc.SendRequest(ctx, f.other.ID, f.medecin.ID, "Consultation ?")
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	rejected, err := f.svc.Reject(ctx, f.medecin.ID, req.ID)
	if err != nil || *rejected.RequestStatus != RequestRejected {
		t.Fatalf("reject: %v %+v", err, rejected)
	}
	if _, err := f.svc.Accept(ctx, f.medecin.ID, req.ID); !errors.Is(err, ErrRequestNotPending) {
		t.Fatalf("rejected request cannot be accepted, got %v", err)
	}
	if _, err := f.svc.Send(ctx, f.other.ID, f.medecin.ID, "Pourquoi ?"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("rejected request does not open the conversation, got %v", err)
	}
	if _, err := f.svc.SendRequest(ctx, f.other.ID, f.medecin.ID, "Nouvelle demande"); err != nil {
		t.Fatalf("a new request may follow a rejection: %v", err)
	}
}

func TestConcurrentRequestsLeaveOnePending(t *testing.T) {
	f := newFixture(nil)
	f.repo.staleChecks = true
	ctx := context.Background()

	const n = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, dups int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.SendRequest(ctx, f.other.ID, f.medecin.ID, "Consultation ?")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrRequestAlreadyPending):
				dups++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || dups != n-1 {
		t.Fatalf("expected 1 request and %d duplicates, got %d and %d", n-1, ok, dups)
	}
	pending, _ := f.svc.PendingRequests(ctx, f.medecin.ID)
	if len(pending) != 1 {
		t.Fatalf("expected one pending request, got %d", len(pending))
	}
}

func TestAcceptIsRetriedAfterFailedReply(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	req, err := f.svc.SendRequest(ctx, f.other.ID, f.medecin.ID, "Consultation ?")
	if err != nil {
		t.Fatalf("send request: %v", err)
	}

	f.repo.replyErr = errors.New("connection reset")
	if _, err := f.svc.Accept(ctx, f.medecin.ID, req.ID); err == nil {
		t.Fatal("accept must report the failed reply")
	}
	stored, _ := f.repo.GetByID(ctx, req.ID)
	if *stored.RequestStatus != RequestPending {
		t.Fatalf("request must stay pending, got %s", *stored.RequestStatus)
	}

	f.repo.replyErr = nil
	reply, err := f.svc.Accept(ctx, f.medecin.ID, req.ID)
	if err != nil {
		t.Fatalf("retry accept: %v", err)
	}
	conv, _ := f.svc.Conversation(ctx, f.other.ID, f.medecin.ID, 0)
	if len(conv) != 2 || conv[1].ID != reply.ID {
		t.Fatalf("expected the request and one acceptance, got %+v", conv)
	}
}

func TestSendPermissions(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	cases := []struct {
		name     string
		from, to uuid.UUID
		want     error
	}{
		{"patient to assigned doctor", f.patient.ID, f.assigned.ID, nil},
		{"assigned doctor to patient", f.assigned.ID, f.patient.ID, nil},
		{"admin to patient", f.admin.ID, f.other.ID, nil},
		{"patient to admin", f.other.ID, f.admin.ID, nil},
		{"patient to patient", f.patient.ID, f.other.ID, ErrNotConnected},
		{"doctor to doctor", f.medecin.ID, f.assigned.ID, ErrNotConnected},
		{"unrelated doctor", f.medecin.ID, f.other.ID, ErrNotConnected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Send(ctx, tc.from, tc.to, "Bonjour")
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}

	_, err := f.svc.Send(ctx, f.patient.ID, f.patient.ID, " ")
	var v validation.Violations
	if !errors.As(err, &v) || v["contenu"] == "" || v["receiver_id"] == "" {
		t.Fatalf("expected violations, got %v", err)
	}
}

func TestPublishesToBothParticipants(t *testing.T) {
	f := newFixture(nil)
	m, err := f.svc.Send(context.Background(), f.patient.ID, f.assigned.ID, "Bonjour")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	for _, id := range []uuid.UUID{f.patient.ID, f.assigned.ID} {
		evs := f.relay.events[id]
		if len(evs) != 1 || evs[0].Type != EventMessage || evs[0].Message.ID != m.ID {
			t.Fatalf("events for %s: %+v", id, evs)
		}
	}
}

func TestInboxAndDelete(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	first, _ := f.svc.Send(ctx, f.patient.ID, f.assigned.ID, "un")
	f.svc.Send(ctx, f.assigned.ID, f.patient.ID, "deux")
	last, _ := f.svc.Send(ctx, f.admin.ID, f.patient.ID, "trois")

	inbox, err := f.svc.Inbox(ctx, f.patient.ID)
	if err != nil {
		t.Fatalf("inbox: %v", err)
	}
	if len(inbox) != 2 || inbox[0].ID != last.ID || inbox[1].Contenu != "deux" {
		t.Fatalf("unexpected inbox %+v", inbox)
	}

	if err := f.svc.Delete(ctx, f.assigned.ID, first.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("only the sender may delete, got %v", err)
	}
	if err := f.svc.Delete(ctx, f.patient.ID, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.svc.Delete(ctx, f.patient.ID, first.ID); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRedisRelayDeliversToSubscriber(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := newFixture(redisclient.NewRedisRelay(rdb))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := f.svc.Subscribe(ctx, f.assigned.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	m, err := f.svc.Send(ctx, f.patient.ID, f.assigned.ID, "Bonjour")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case payload := <-ch:
		var ev Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if ev.Message == nil || ev.Message.ID != m.ID {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-ctx.Done():
		t.Fatal("no event delivered")
	}
}
