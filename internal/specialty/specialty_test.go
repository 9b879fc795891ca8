package specialty

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-management/internal/user"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		matched bool
	}{
		{"Cardiologie", "Cardiologie", true},
		{"  DERMATOLOGUE\n", "Dermatologie", true},
		{"neurochirurgie", "Neurochirurgie", true},
		{"Neurologie.", "Neurologie", true},
		{"un problème de cœur", "Cardiologie", true},
		{"Gastro-entérologie", "Gastro-entérologie", true},
		{"chirurgien", "Chirurgie générale", true},
		{"ORL", "ORL", true},
		{"Otorhinolaryngologie", "ORL", true},
		{"oto-rhino-laryngologiste", "ORL", true},
		{"pédiatre", "Pédiatrie", true},
		{"  Acupuncture ", "Acupuncture", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, matched := Classify(tc.in)
		if got != tc.want || matched != tc.matched {
			t.Errorf("Classify(%q) = (%q, %v), want (%q, %v)", tc.in, got, matched, tc.want, tc.matched)
		}
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	// "cardiologie pédiatrique" holds two keywords; order decides.
	for i := 0; i < 50; i++ {
		if got, _ := Classify("cardiologie pédiatrique"); got != "Cardiologie" {
			t.Fatalf("run %d: got %q", i, got)
		}
	}
}

func TestSpecialitesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range Specialites() {
		if seen[s] {
			t.Fatalf("duplicate specialty %q", s)
		}
		seen[s] = true
	}
	if len(seen) < 15 {
		t.Fatalf("expected a broad specialty list, got %d", len(seen))
	}
}

type scriptedLLM struct {
	answers map[string]string
	err     error
}

func (s scriptedLLM) Complete(_ context.Context, system, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.answers[system], nil
}

func (s scriptedLLM) ReadImage(context.Context, string, []byte) (string, error) {
	return "", errors.New("not used")
}

type fakeLister struct {
	asked []string
}

func (f *fakeLister) ListMedecins(_ context.Context, spec string) ([]user.Medecin, error) {
	f.asked = append(f.asked, spec)
	if strings.EqualFold(spec, "Cardiologie") {
		return []user.Medecin{{ID: uuid.New(), Nom: "Martin", Specialite: "Cardiologie"}}, nil
	}
	return nil, nil
}

type memChatRepo struct {
	rows []ChatMessage
}

func (m *memChatRepo) Insert(_ context.Context, c ChatMessage) error {
	m.rows = append(m.rows, c)
	return nil
}

func (m *memChatRepo) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]ChatMessage, error) {
	var out []ChatMessage
	for _, r := range m.rows {
		if r.UserID == userID && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestTriage(t *testing.T) {
	llm := scriptedLLM{answers: map[string]string{
		AnswerPrompt:    "Consultez rapidement un médecin.",
		SpecialtyPrompt: "Cardiologue",
	}}
	lister := &fakeLister{}
	repo := &memChatRepo{}
	svc := NewService(llm, lister, repo)

	uid := uuid.New()
	res, err := svc.Triage(context.Background(), uid, "douleur dans la poitrine")
	if err != nil {
		t.Fatalf("triage: %v", err)
	}
	if res.Specialite != "Cardiologie" || !res.Matched {
		t.Fatalf("unexpected specialty %+v", res)
	}
	if len(res.Medecins) != 1 {
		t.Fatalf("expected one doctor, got %d", len(res.Medecins))
	}
	if len(repo.rows) != 1 || repo.rows[0].UserID != uid || repo.rows[0].Specialite != "Cardiologie" {
		t.Fatalf("triage not logged: %+v", repo.rows)
	}

	hist, err := svc.History(context.Background(), uid, 0)
	if err != nil || len(hist) != 1 {
		t.Fatalf("history: %v %d", err, len(hist))
	}
}

func TestTriageUnmatchedKeepsRawGuess(t *testing.T) {
	llm := scriptedLLM{answers: map[string]string{AnswerPrompt: "ok", SpecialtyPrompt: "Acupuncture"}}
	svc := NewService(llm, &fakeLister{}, &memChatRepo{})
	res, err := svc.Triage(context.Background(), uuid.New(), "stress")
	if err != nil {
		t.Fatalf("triage: %v", err)
	}
	if res.Specialite != "Acupuncture" || res.Matched || res.Medecins == nil {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestTriageErrors(t *testing.T) {
	svc := NewService(scriptedLLM{}, &fakeLister{}, &memChatRepo{})
	if _, err := svc.Triage(context.Background(), uuid.New(), "   "); !errors.Is(err, ErrEmptySymptoms) {
		t.Fatalf("expected ErrEmptySymptoms, got %v", err)
	}

	boom := errors.New("boom")
	svc = NewService(scriptedLLM{err: boom}, &fakeLister{}, &memChatRepo{})
	if _, err := svc.Triage(context.Background(), uuid.New(), "toux"); !errors.Is(err, boom) {
		t.Fatalf("expected llm error to propagate, got %v", err)
	}
}
