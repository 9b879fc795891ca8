package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/hackgods/clinic-management/internal/document"
)

const contentTypePDF = "application/pdf"

// Notifier turns domain events into emails, rendering the PDF attachment
// synchronously before sending.
type Notifier struct {
	mailer  Mailer
	clinic  string
	timeout time.Duration
}

func NewNotifier(mailer Mailer, clinic string, timeout time.Duration) *Notifier {
	return &Notifier{mailer: mailer, clinic: clinic, timeout: timeout}
}

func (n *Notifier) ClinicName() string { return n.clinic }

func (n *Notifier) AppointmentBooked(ctx context.Context, to string, d document.AppointmentData) error {
	d.ClinicName = n.clinic
	pdf, err := document.AppointmentPDF(d)
	if err != nil {
		return fmt.Errorf("render appointment pdf: %w", err)
	}

	body := paragraphs(
		"Bonjour "+esc(d.PatientName)+",",
		fmt.Sprintf("Votre rendez-vous avec le Dr %s est confirmé le %s à %s.", esc(d.MedecinName), esc(document.FrenchDate(d.Date)), esc(d.Heure)),
		"Vous trouverez en pièce jointe votre confirmation avec son QR code.",
		esc(n.clinic),
	)
	return n.send(ctx, Email{
		To:      to,
		Subject: "Confirmation de votre rendez-vous",
		HTML:    body,
		Attachments: []Attachment{{
			Filename:    "rendez-vous-" + d.Reference + ".pdf",
			ContentType: contentTypePDF,
			Data:        pdf,
		}},
	})
}

func (n *Notifier) AppointmentCancelled(ctx context.Context, to string, d document.AppointmentData) error {
	body := paragraphs(
		"Bonjour "+esc(d.PatientName)+",",
		fmt.Sprintf("Votre rendez-vous du %s à %s avec le Dr %s a été annulé.", esc(document.FrenchDate(d.Date)), esc(d.Heure), esc(d.MedecinName)),
		esc(n.clinic),
	)
	return n.send(ctx, Email{To: to, Subject: "Annulation de votre rendez-vous", HTML: body})
}

func (n *Notifier) PrescriptionIssued(ctx context.Context, to string, d document.PrescriptionData) error {
	d.ClinicName = n.clinic
	pdf, err := document.PrescriptionPDF(d)
	if err != nil {
		return fmt.Errorf("render prescription pdf: %w", err)
	}

	body := paragraphs(
		"Bonjour "+esc(d.PatientName)+",",
		"Le Dr "+esc(d.MedecinName)+" vous a délivré une nouvelle ordonnance, jointe à ce message.",
		esc(n.clinic),
	)
	return n.send(ctx, Email{
		To:      to,
		Subject: "Votre ordonnance",
		HTML:    body,
		Attachments: []Attachment{{
			Filename:    "ordonnance-" + d.Reference + ".pdf",
			ContentType: contentTypePDF,
			Data:        pdf,
		}},
	})
}

func (n *Notifier) ResetCode(ctx context.Context, to, name, code string, ttl time.Duration) error {
	body := paragraphs(
		"Bonjour "+esc(name)+",",
		"Votre code de réinitialisation est : <strong>"+esc(code)+"</strong>",
		fmt.Sprintf("Ce code expire dans %d minutes.", int(ttl.Minutes())),
		esc(n.clinic),
	)
	return n.send(ctx, Email{To: to, Subject: "Réinitialisation de votre mot de passe", HTML: body})
}

func (n *Notifier) send(ctx context.Context, e Email) error {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}
	return n.mailer.Send(ctx, e)
}

var esc = html.EscapeString

// paragraphs wraps lines that are already HTML. Callers escape every
// user supplied value with esc while building a line.
func paragraphs(lines ...string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString("<p>")
		b.WriteString(l)
		b.WriteString("</p>\n")
	}
	return b.String()
}
