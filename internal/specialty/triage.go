package specialty

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-management/internal/llm"
	"github.com/hackgods/clinic-management/internal/user"
)

var ErrEmptySymptoms = errors.New("symptoms are required")

// ChatMessage is one logged triage exchange.
type ChatMessage struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Specialite string    `json:"specialite"`
	CreatedAt  time.Time `json:"created_at"`
}

type Repository interface {
	Insert(ctx context.Context, m ChatMessage) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]ChatMessage, error)
}

// MedecinLister is satisfied by *user.Service.
type MedecinLister interface {
	ListMedecins(ctx context.Context, specialite string) ([]user.Medecin, error)
}

type Result struct {
	Answer     string         `json:"answer"`
	Specialite string         `json:"specialite"`
	Matched    bool           `json:"matched"`
	Medecins   []user.Medecin `json:"medecins"`
}

type Service struct {
	llm   llm.Client
	users MedecinLister
	repo  Repository
}

func NewService(client llm.Client, users MedecinLister, repo Repository) *Service {
	return &Service{llm: client, users: users, repo: repo}
}

// Triage answers a symptom description, guesses the matching specialty and
// lists the active doctors holding it.
func (s *Service) Triage(ctx context.Context, userID uuid.UUID, symptoms string) (*Result, error) {
	symptoms = strings.TrimSpace(symptoms)
	if symptoms == "" {
		return nil, ErrEmptySymptoms
	}

	answer, err := s.llm.Complete(ctx, AnswerPrompt, symptoms)
	if err != nil {
		return nil, fmt.Errorf("triage answer: %w", err)
	}
	guess, err := s.llm.Complete(ctx, SpecialtyPrompt, symptoms)
	if err != nil {
		return nil, fmt.Errorf("triage specialty: %w", err)
	}

	spec, matched := Classify(guess)
	medecins, err := s.users.ListMedecins(ctx, spec)
	if err != nil {
		return nil, err
	}
	if medecins == nil {
		medecins = []user.Medecin{}
	}

	entry := ChatMessage{
		ID:         uuid.New(),
		UserID:     userID,
		Question:   symptoms,
		Answer:     answer,
		Specialite: spec,
		CreatedAt:  time.Now(),
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		log.Printf("failed to log triage for user %s: %v", userID, err)
	}

	return &Result{
		Answer:     answer,
		Specialite: spec,
		Matched:    matched,
		Medecins:   medecins,
	}, nil
}

func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]ChatMessage, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	msgs, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list triage history: %w", err)
	}
	return msgs, nil
}
