package analysis

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phpdave11/gofpdf"

	"github.com/hackgods/clinic-management/internal/document"
	"github.com/hackgods/clinic-management/internal/prescription"
)

type fakeLLM struct {
	ocrText   string
	ocrCalls  int
	ocrMime   string
	ocrImage  []byte
	lastInput string
}

func (f *fakeLLM) Complete(_ context.Context, _, in string) (string, error) {
	f.lastInput = in
	return "Explication simple.", nil
}

func (f *fakeLLM) ReadImage(_ context.Context, mimeType string, data []byte) (string, error) {
	f.ocrCalls++
	f.ocrMime = mimeType
	f.ocrImage = data
	return f.ocrText, nil
}

type memRepo struct {
	rows []Analyse
}

func (m *memRepo) Insert(_ context.Context, a *Analyse) error {
	m.rows = append(m.rows, *a)
	return nil
}

func (m *memRepo) ListByPatient(_ context.Context, id uuid.UUID) ([]Analyse, error) {
	var out []Analyse
	for _, a := range m.rows {
		if a.PatientID == id {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakePrescriptions map[uuid.UUID]*prescription.Ordonnance

func (f fakePrescriptions) GetForPatient(_ context.Context, patientID, id uuid.UUID) (*prescription.Ordonnance, error) {
	o, ok := f[id]
	if !ok || o.PatientID != patientID {
		return nil, prescription.ErrOrdonnanceNotFound
	}
	return o, nil
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestDetectType(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
		err  error
	}{
		{"scan.bin", pngHeader, "image/png", nil},
		{"photo.JPG", []byte("not really a jpeg"), "image/jpeg", nil},
		{"x", []byte("%PDF-1.4\n"), "application/pdf", nil},
		{"notes.txt", []byte("hello"), "", ErrUnsupportedFile},
	}
	for _, tc := range cases {
		got, err := DetectType(tc.name, tc.data)
		if !errors.Is(err, tc.err) || got != tc.want {
			t.Errorf("DetectType(%q) = %q, %v; want %q, %v", tc.name, got, err, tc.want, tc.err)
		}
	}
}

func TestAnalyzeImageUsesOCR(t *testing.T) {
	llm := &fakeLLM{ocrText: "Doliprane 1000mg 3x/jour"}
	repo := &memRepo{}
	svc := NewService(llm, repo, fakePrescriptions{})

	patient := uuid.New()
	a, err := svc.Analyze(context.Background(), patient, "ordonnance.png", pngHeader)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if a.Method != MethodOCR || llm.ocrCalls != 1 {
		t.Fatalf("expected ocr path, got method=%s calls=%d", a.Method, llm.ocrCalls)
	}
	if a.ExtractedText != "Doliprane 1000mg 3x/jour" || a.Explanation == "" {
		t.Fatalf("unexpected analyse %+v", a)
	}
	list, _ := svc.List(context.Background(), patient)
	if len(list) != 1 {
		t.Fatalf("analyse not stored")
	}
}

func TestAnalyzeBlankOCR(t *testing.T) {
	svc := NewService(&fakeLLM{ocrText: "  "}, &memRepo{}, fakePrescriptions{})
	if _, err := svc.Analyze(context.Background(), uuid.New(), "a.jpg", []byte{0xff, 0xd8, 0xff, 0xe0}); !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
}

func TestAnalyzeGeneratedPDFReadsTextLayer(t *testing.T) {
	doc, err := document.PrescriptionPDF(document.PrescriptionData{
		ClinicName: "Clinique", Reference: "r1", PatientName: "Paul", MedecinName: "Claire",
		Contenu: "Amoxicilline 500 mg matin et soir",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	llm := &fakeLLM{}
	svc := NewService(llm, &memRepo{}, fakePrescriptions{})
	a, err := svc.Analyze(context.Background(), uuid.New(), "ordonnance.pdf", doc)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if a.Method != MethodPDFText || llm.ocrCalls != 0 {
		t.Fatalf("expected pdf text path, got %s", a.Method)
	}
	if !strings.Contains(a.ExtractedText, "Amoxicilline") {
		t.Fatalf("text layer not extracted: %q", a.ExtractedText)
	}
}

func TestAnalyzeBrokenPDF(t *testing.T) {
	svc := NewService(&fakeLLM{}, &memRepo{}, fakePrescriptions{})
	_, err := svc.Analyze(context.Background(), uuid.New(), "x.pdf", []byte("%PDF-1.4 garbage"))
	if !errors.Is(err, ErrUnsupportedFile) {
		t.Fatalf("expected ErrUnsupportedFile, got %v", err)
	}
}

func TestExplainStoredOrdonnance(t *testing.T) {
	patient := uuid.New()
	o := &prescription.Ordonnance{ID: uuid.New(), PatientID: patient, Contenu: "Ventoline", Duree: "1 mois"}
	llm := &fakeLLM{}
	svc := NewService(llm, &memRepo{}, fakePrescriptions{o.ID: o})

	a, err := svc.Explain(context.Background(), patient, o.ID)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if a.OrdonnanceID == nil || *a.OrdonnanceID != o.ID || a.Method != MethodOrdonnance {
		t.Fatalf("unexpected analyse %+v", a)
	}
	if !strings.Contains(llm.lastInput, "Durée : 1 mois") {
		t.Fatalf("prompt missing prescription fields: %q", llm.lastInput)
	}

	if _, err := svc.Explain(context.Background(), uuid.New(), o.ID); !errors.Is(err, prescription.ErrOrdonnanceNotFound) {
		t.Fatalf("foreign patient must get not found, got %v", err)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("éééé", 2); got != "éé" {
		t.Fatalf("got %q", got)
	}
	if !bytes.Equal([]byte(truncateRunes("ab", 5)), []byte("ab")) {
		t.Fatal("short strings are kept")
	}
}

// scannedPDF renders a page holding only a JPEG image, like a scanner does.
func scannedPDF(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 250, G: 250, B: 245, A: 255})
		}
	}
	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	opts := gofpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader("scan", opts, bytes.NewReader(jpg.Bytes()))
	pdf.ImageOptions("scan", 10, 10, 190, 0, false, opts, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		t.Fatalf("render scanned pdf: %v", err)
	}
	return out.Bytes()
}

func TestAnalyzeScannedPDFFallsBackToOCR(t *testing.T) {
	llm := &fakeLLM{ocrText: "Doliprane 1000 mg, 3 fois par jour"}
	repo := &memRepo{}
	svc := NewService(llm, repo, fakePrescriptions{})

	a, err := svc.Analyze(context.Background(), uuid.New(), "scan.pdf", scannedPDF(t))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if a.Method != MethodPDFImage {
		t.Fatalf("expected %s, got %s", MethodPDFImage, a.Method)
	}
	if llm.ocrCalls != 1 || llm.ocrMime != "image/jpeg" {
		t.Fatalf("expected one jpeg OCR call, got %d (%s)", llm.ocrCalls, llm.ocrMime)
	}
	if !bytes.HasPrefix(llm.ocrImage, []byte{0xff, 0xd8}) {
		t.Fatal("embedded image should reach OCR as a JPEG file")
	}
	if !strings.Contains(a.ExtractedText, "Doliprane") || len(repo.rows) != 1 {
		t.Fatalf("analysis not stored: %+v", a)
	}
}

func TestAnalyzeScannedPDFBlankOCR(t *testing.T) {
	svc := NewService(&fakeLLM{ocrText: " "}, &memRepo{}, fakePrescriptions{})
	if _, err := svc.Analyze(context.Background(), uuid.New(), "scan.pdf", scannedPDF(t)); !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
}
