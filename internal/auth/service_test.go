package auth

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/clinic-management/internal/activity"
	redisclient "github.com/hackgods/clinic-management/internal/redis"
	"github.com/hackgods/clinic-management/internal/user"
)

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*user.User
	roles []user.Role
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[uuid.UUID]*user.User{}} }

func (f *fakeUsers) add(t *testing.T, email, password string, role user.Role, active bool) *user.User {
	t.Helper()
	hash, err := user.HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &user.User{ID: uuid.New(), Email: email, PasswordHash: hash, Role: role, Prenom: "Jean", Nom: "Dupont", IsActive: active}
	f.mu.Lock()
	f.byID[u.ID] = u
	f.mu.Unlock()
	return u
}

func (f *fakeUsers) Create(_ context.Context, _ uuid.UUID, in user.CreateInput) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles = append(f.roles, in.Role)
	u := &user.User{ID: uuid.New(), Email: in.Email, Role: in.Role, IsActive: true}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) Get(_ context.Context, id uuid.UUID) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == user.NormalizeEmail(email) {
			return u, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (f *fakeUsers) SetPassword(_ context.Context, id uuid.UUID, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	hash, err := user.HashPassword(password)
	if err != nil {
		return err
	}
	f.byID[id].PasswordHash = hash
	return nil
}

type captureNotifier struct {
	codes map[string]string
}

func (c *captureNotifier) ResetCode(_ context.Context, to, _, code string, _ time.Duration) error {
	c.codes[to] = code
	return nil
}

type nopActivity struct{}

func (nopActivity) Insert(context.Context, activity.Activity) error { return nil }
func (nopActivity) ListRecent(context.Context, int, int) ([]activity.Activity, error) {
	return nil, nil
}

type fixture struct {
	svc      *Service
	users    *fakeUsers
	notifier *captureNotifier
	redis    *miniredis.Miniredis
	tokens   *TokenIssuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	users := newFakeUsers()
	n := &captureNotifier{codes: map[string]string{}}
	tokens := NewTokenIssuer("test-secret", time.Hour)
	svc := NewService(users, tokens, redisclient.NewRedisCodeStore(rdb, 15*time.Minute), n, activity.NewRecorder(nopActivity{}), 15*time.Minute)
	return &fixture{svc: svc, users: users, notifier: n, redis: mr, tokens: tokens}
}

func TestRegisterForcesPatientRole(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Register(context.Background(), user.CreateInput{Email: "a@b.fr", Role: user.RoleAdmin}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(f.users.roles) != 1 || f.users.roles[0] != user.RolePatient {
		t.Fatalf("expected patient role, got %v", f.users.roles)
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	u := f.users.add(t, "jean@x.fr", "motdepasse", user.RoleMedecin, true)
	f.users.add(t, "off@x.fr", "motdepasse", user.RolePatient, false)

	s, err := f.svc.Login(context.Background(), "Jean@X.fr", "motdepasse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	id, role, err := f.tokens.Parse(s.Token)
	if err != nil || id != u.ID || role != user.RoleMedecin {
		t.Fatalf("token does not carry identity: %v %v %v", id, role, err)
	}

	if _, err := f.svc.Login(context.Background(), "jean@x.fr", "mauvais"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := f.svc.Login(context.Background(), "nobody@x.fr", "motdepasse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
	if _, err := f.svc.Login(context.Background(), "off@x.fr", "motdepasse"); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestAuthenticateRechecksActive(t *testing.T) {
	f := newFixture(t)
	u := f.users.add(t, "jean@x.fr", "motdepasse", user.RolePatient, true)
	s, _ := f.svc.Login(context.Background(), "jean@x.fr", "motdepasse")

	if got, err := f.svc.Authenticate(context.Background(), s.Token); err != nil || got.ID != u.ID {
		t.Fatalf("authenticate: %v", err)
	}
	u.IsActive = false
	if _, err := f.svc.Authenticate(context.Background(), s.Token); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("disabled user must be refused, got %v", err)
	}
	if _, err := f.svc.Authenticate(context.Background(), "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	u := f.users.add(t, "jean@x.fr", "ancienmotdepasse", user.RolePatient, true)

	if err := f.svc.RequestReset(context.Background(), "JEAN@x.fr"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	code := f.notifier.codes["jean@x.fr"]
	if !regexp.MustCompile(`^\d{6}$`).MatchString(code) {
		t.Fatalf("code %q is not six digits", code)
	}

	if err := f.svc.ResetPassword(context.Background(), "jean@x.fr", "000000x", "nouveaumotdepasse"); !errors.Is(err, ErrInvalidResetCode) {
		t.Fatalf("malformed code must be refused, got %v", err)
	}
	if err := f.svc.ResetPassword(context.Background(), "jean@x.fr", code, "nouveaumotdepasse"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !user.CheckPassword("nouveaumotdepasse", u.PasswordHash) {
		t.Fatal("password not changed")
	}
	if err := f.svc.ResetPassword(context.Background(), "jean@x.fr", code, "autremotdepasse"); !errors.Is(err, ErrInvalidResetCode) {
		t.Fatalf("code must be single use, got %v", err)
	}
}

func TestResetCodeExpires(t *testing.T) {
	f := newFixture(t)
	f.users.add(t, "jean@x.fr", "ancienmotdepasse", user.RolePatient, true)
	_ = f.svc.RequestReset(context.Background(), "jean@x.fr")
	code := f.notifier.codes["jean@x.fr"]

	f.redis.FastForward(16 * time.Minute)
	if err := f.svc.ResetPassword(context.Background(), "jean@x.fr", code, "nouveaumotdepasse"); !errors.Is(err, ErrInvalidResetCode) {
		t.Fatalf("expired code must be refused, got %v", err)
	}
}

func TestRequestResetUnknownEmailIsSilent(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.RequestReset(context.Background(), "ghost@x.fr"); err != nil {
		t.Fatalf("unknown email must not error, got %v", err)
	}
	if len(f.notifier.codes) != 0 {
		t.Fatal("no email must be sent")
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	u := f.users.add(t, "jean@x.fr", "ancienmotdepasse", user.RolePatient, true)
	if err := f.svc.ChangePassword(context.Background(), u.ID, "faux", "nouveaumotdepasse"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}
	if err := f.svc.ChangePassword(context.Background(), u.ID, "ancienmotdepasse", "nouveaumotdepasse"); err != nil {
		t.Fatalf("change: %v", err)
	}
}

func TestResetCodesAreSixDigits(t *testing.T) {
	re := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 200; i++ {
		c, err := NewResetCode()
		if err != nil || !re.MatchString(c) {
			t.Fatalf("bad code %q: %v", c, err)
		}
	}
}

func TestExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("s", time.Minute)
	base := time.Now()
	issuer.now = func() time.Time { return base }
	tok, _, err := issuer.Issue(&user.User{ID: uuid.New(), Role: user.RoleAdmin})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	issuer.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, _, err := issuer.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expiry, got %v", err)
	}
	other := NewTokenIssuer("other", time.Minute)
	if _, _, err := other.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatal("token signed with another secret must be refused")
	}
}
