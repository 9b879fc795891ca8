package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-management/internal/activity"
	redisclient "github.com/hackgods/clinic-management/internal/redis"
	"github.com/hackgods/clinic-management/internal/user"
	"github.com/hackgods/clinic-management/internal/validation"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrInvalidResetCode   = errors.New("code invalide ou expiré")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

var resetCodeRe = regexp.MustCompile(`^\d{6}$`)

type Users interface {
	Create(ctx context.Context, actor uuid.UUID, in user.CreateInput) (*user.User, error)
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	SetPassword(ctx context.Context, id uuid.UUID, password string) error
}

type ResetNotifier interface {
	ResetCode(ctx context.Context, to, name, code string, ttl time.Duration) error
}

type Service struct {
	users    Users
	tokens   *TokenIssuer
	codes    redisclient.CodeStore
	notifier ResetNotifier
	activity *activity.Recorder
	codeTTL  time.Duration
}

func NewService(users Users, tokens *TokenIssuer, codes redisclient.CodeStore, notifier ResetNotifier, rec *activity.Recorder, codeTTL time.Duration) *Service {
	return &Service{
		users:    users,
		tokens:   tokens,
		codes:    codes,
		notifier: notifier,
		activity: rec,
		codeTTL:  codeTTL,
	}
}

type Session struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      *user.User `json:"user"`
}

// Register creates a patient account. The role in the input is ignored.
func (s *Service) Register(ctx context.Context, in user.CreateInput) (*user.User, error) {
	in.Role = user.RolePatient
	return s.users.Create(ctx, uuid.Nil, in)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.CheckPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}

	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, u.ID, activity.ActionLogin, "user", u.ID, nil)
	return &Session{Token: token, ExpiresAt: exp, User: u}, nil
}

// Authenticate resolves a bearer token to an active user.
func (s *Service) Authenticate(ctx context.Context, token string) (*user.User, error) {
	id, _, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}
	return u, nil
}

// RequestReset emails a one-time code. Unknown or disabled accounts get no
// email but the call still succeeds so addresses cannot be enumerated.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			log.Printf("password reset requested for unknown email")
			return nil
		}
		return err
	}
	if !u.IsActive {
		return nil
	}

	code, err := NewResetCode()
	if err != nil {
		return err
	}
	if err := s.codes.Save(ctx, u.Email, code); err != nil {
		return err
	}
	if err := s.notifier.ResetCode(ctx, u.Email, u.FullName(), code, s.codeTTL); err != nil {
		return fmt.Errorf("send reset code: %w", err)
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	v := validation.Violations{}
	user.ValidatePassword("password", newPassword, v)
	if err := v.Err(); err != nil {
		return err
	}
	if !resetCodeRe.MatchString(code) {
		return ErrInvalidResetCode
	}

	email = user.NormalizeEmail(email)
	if err := s.codes.Consume(ctx, email, code); err != nil {
		if errors.Is(err, redisclient.ErrCodeNotFound) {
			return ErrInvalidResetCode
		}
		return err
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return ErrInvalidResetCode
		}
		return err
	}
	if err := s.users.SetPassword(ctx, u.ID, newPassword); err != nil {
		return err
	}
	s.activity.Record(ctx, u.ID, activity.ActionPasswordReset, "user", u.ID, nil)
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, newPassword string) error {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !user.CheckPassword(current, u.PasswordHash) {
		return ErrWrongPassword
	}
	return s.users.SetPassword(ctx, userID, newPassword)
}

// NewResetCode returns six random digits.
func NewResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
