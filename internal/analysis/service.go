package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-management/internal/llm"
	"github.com/hackgods/clinic-management/internal/prescription"
)

// maxPromptRunes bounds the prescription text sent for explanation.
const maxPromptRunes = 12000

const explainPrompt = "Tu aides un patient à comprendre son ordonnance. Réponds en français simple. " +
	"Pour chaque médicament, explique à quoi il sert, comment le prendre et les précautions " +
	"courantes. Termine en rappelant de suivre l'avis du médecin ou du pharmacien."

// Analyse is a stored explanation of a prescription.
type Analyse struct {
	ID            uuid.UUID  `json:"id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	OrdonnanceID  *uuid.UUID `json:"ordonnance_id,omitempty"`
	Filename      string     `json:"filename,omitempty"`
	ExtractedText string     `json:"extracted_text"`
	Explanation   string     `json:"explanation"`
	Method        string     `json:"method"`
	CreatedAt     time.Time  `json:"created_at"`
}

type Repository interface {
	Insert(ctx context.Context, a *Analyse) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Analyse, error)
}

type Prescriptions interface {
	GetForPatient(ctx context.Context, patientID, id uuid.UUID) (*prescription.Ordonnance, error)
}

type Service struct {
	llm           llm.Client
	repo          Repository
	prescriptions Prescriptions
}

func NewService(client llm.Client, repo Repository, prescriptions Prescriptions) *Service {
	return &Service{llm: client, repo: repo, prescriptions: prescriptions}
}

// Analyze extracts the text of an uploaded prescription and explains it.
func (s *Service) Analyze(ctx context.Context, patientID uuid.UUID, filename string, data []byte) (*Analyse, error) {
	mimeType, err := DetectType(filename, data)
	if err != nil {
		return nil, err
	}
	text, method, err := Extract(ctx, s.llm, mimeType, data)
	if err != nil {
		return nil, err
	}
	return s.explainAndStore(ctx, &Analyse{
		PatientID:     patientID,
		Filename:      filename,
		ExtractedText: strings.TrimSpace(text),
		Method:        method,
	})
}

// Explain explains one of the patient's stored prescriptions.
func (s *Service) Explain(ctx context.Context, patientID, ordonnanceID uuid.UUID) (*Analyse, error) {
	o, err := s.prescriptions.GetForPatient(ctx, patientID, ordonnanceID)
	if err != nil {
		return nil, err
	}
	id := o.ID
	return s.explainAndStore(ctx, &Analyse{
		PatientID:     patientID,
		OrdonnanceID:  &id,
		ExtractedText: o.PlainText(),
		Method:        MethodOrdonnance,
	})
}

func (s *Service) List(ctx context.Context, patientID uuid.UUID) ([]Analyse, error) {
	list, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	return list, nil
}

func (s *Service) explainAndStore(ctx context.Context, a *Analyse) (*Analyse, error) {
	explanation, err := s.llm.Complete(ctx, explainPrompt, truncateRunes(a.ExtractedText, maxPromptRunes))
	if err != nil {
		return nil, fmt.Errorf("explain ordonnance: %w", err)
	}
	a.ID = uuid.New()
	a.Explanation = explanation
	a.CreatedAt = time.Now()
	if err := s.repo.Insert(ctx, a); err != nil {
		return nil, fmt.Errorf("store analyse: %w", err)
	}
	return a, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
