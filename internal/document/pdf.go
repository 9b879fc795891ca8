// Package document renders the one-page PDFs attached to appointment and
// prescription emails. Every document carries a QR code with a plain-text
// summary so it can be checked at the front desk without network access.
package document

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/phpdave11/gofpdf"
)

const (
	pageWidth   = 210.0
	marginLeft  = 20.0
	contentW    = pageWidth - 2*marginLeft
	qrSize      = 40.0
	qrPixels    = 256
	maxBodyRows = 28

	// Per-line cap on the text put in QR codes; the whole summary stays far
	// below the capacity of a level M code.
	maxSummaryField = 80
)

type AppointmentData struct {
	ClinicName   string
	Reference    string
	PatientName  string
	PatientEmail string
	MedecinName  string
	Specialite   string
	Date         string // YYYY-MM-DD
	Heure        string // HH:MM
	Motif        string
	Statut       string
	IssuedAt     time.Time
}

type PrescriptionData struct {
	ClinicName  string
	Reference   string
	PatientName string
	MedecinName string
	Specialite  string
	Contenu     string
	Traitements string
	Duree       string
	Analyses    string
	IssuedAt    time.Time
}

// Summary is the text encoded in the appointment QR code.
func (d AppointmentData) Summary() string {
	return strings.Join([]string{
		"Rendez-vous " + clip(d.Reference),
		"Patient: " + clip(d.PatientName),
		"Médecin: Dr " + clip(d.MedecinName+specialiteSuffix(d.Specialite)),
		"Date: " + clip(FrenchDate(d.Date)) + " à " + clip(d.Heure),
		"Motif: " + clip(d.Motif),
	}, "\n")
}

// Summary is the text encoded in the prescription QR code.
func (d PrescriptionData) Summary() string {
	lines := []string{
		"Ordonnance " + clip(d.Reference),
		"Patient: " + clip(d.PatientName),
		"Médecin: Dr " + clip(d.MedecinName),
		"Date: " + d.IssuedAt.Format("02/01/2006"),
	}
	if d.Duree != "" {
		lines = append(lines, "Durée: "+clip(d.Duree))
	}
	return strings.Join(lines, "\n")
}

func AppointmentPDF(d AppointmentData) ([]byte, error) {
	doc := newDocument(d.ClinicName, "Confirmation de rendez-vous", d.IssuedAt)

	doc.field("Référence", d.Reference)
	doc.field("Patient", d.PatientName)
	if d.PatientEmail != "" {
		doc.field("Email", d.PatientEmail)
	}
	doc.field("Médecin", "Dr "+d.MedecinName+specialiteSuffix(d.Specialite))
	doc.field("Date", FrenchDate(d.Date))
	doc.field("Heure", d.Heure)
	if d.Statut != "" {
		doc.field("Statut", d.Statut)
	}
	doc.section("Motif", d.Motif, 6)

	return doc.finish(d.Summary())
}

func PrescriptionPDF(d PrescriptionData) ([]byte, error) {
	doc := newDocument(d.ClinicName, "Ordonnance", d.IssuedAt)

	doc.field("Référence", d.Reference)
	doc.field("Patient", d.PatientName)
	doc.field("Médecin", "Dr "+d.MedecinName+specialiteSuffix(d.Specialite))

	rows := maxBodyRows
	rows -= doc.section("Prescription", d.Contenu, rows)
	if d.Traitements != "" && rows > 2 {
		rows -= doc.section("Traitements", d.Traitements, rows)
	}
	if d.Duree != "" && rows > 0 {
		doc.field("Durée", d.Duree)
		rows--
	}
	if d.Analyses != "" && rows > 2 {
		doc.section("Analyses", d.Analyses, rows)
	}

	return doc.finish(d.Summary())
}

type document struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func newDocument(clinic, title string, issued time.Time) *document {
	if issued.IsZero() {
		issued = time.Now()
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginLeft, 20, marginLeft)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(tr(title), false)
	pdf.SetCreator(tr(clinic), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(contentW-qrSize, 10, tr(clinic), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(contentW-qrSize, 8, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(contentW-qrSize, 6, tr("Émis le "+issued.Format("02/01/2006 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(16)

	return &document{pdf: pdf, tr: tr}
}

func (d *document) field(label, value string) {
	d.pdf.SetFont("Helvetica", "B", 11)
	d.pdf.CellFormat(40, 7, d.tr(label+" :"), "", 0, "L", false, 0, "")
	d.pdf.SetFont("Helvetica", "", 11)
	d.pdf.CellFormat(contentW-40, 7, d.tr(value), "", 1, "L", false, 0, "")
}

// section writes a titled block and returns how many rows it used. Text
// beyond maxRows is cut: documents never spill onto a second page.
func (d *document) section(label, text string, maxRows int) int {
	if maxRows < 2 {
		return 0
	}
	d.pdf.Ln(3)
	d.pdf.SetFont("Helvetica", "B", 11)
	d.pdf.CellFormat(contentW, 7, d.tr(label), "", 1, "L", false, 0, "")
	d.pdf.SetFont("Helvetica", "", 11)

	lines := d.pdf.SplitLines([]byte(d.tr(strings.TrimSpace(text))), contentW)
	limit := maxRows - 1
	if len(lines) > limit {
		lines = lines[:limit]
		last := string(lines[limit-1])
		lines[limit-1] = []byte(strings.TrimRight(last, " ") + "...")
	}
	for _, l := range lines {
		d.pdf.CellFormat(contentW, 6, string(l), "", 1, "L", false, 0, "")
	}
	return len(lines) + 1
}

func (d *document) finish(summary string) ([]byte, error) {
	img, err := qrPNG(summary)
	if err != nil {
		return nil, err
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	d.pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(img))
	d.pdf.ImageOptions("qr", pageWidth-marginLeft-qrSize, 18, qrSize, qrSize, false, opts, 0, "")

	d.pdf.SetY(-20)
	d.pdf.SetFont("Helvetica", "I", 8)
	d.pdf.CellFormat(contentW, 5, d.tr("Document généré automatiquement - ne pas jeter."), "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func qrPNG(content string) ([]byte, error) {
	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	code, err = barcode.Scale(code, qrPixels, qrPixels)
	if err != nil {
		return nil, fmt.Errorf("scale qr: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return nil, fmt.Errorf("encode qr png: %w", err)
	}
	return buf.Bytes(), nil
}

// clip shortens s to maxSummaryField runes, marking the cut with "...".
func clip(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= maxSummaryField {
		return s
	}
	return strings.TrimSpace(string(r[:maxSummaryField-3])) + "..."
}

// FrenchDate renders YYYY-MM-DD as DD/MM/YYYY; other inputs pass through.
func FrenchDate(iso string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return t.Format("02/01/2006")
}

func specialiteSuffix(s string) string {
	if s == "" {
		return ""
	}
	return " (" + s + ")"
}
