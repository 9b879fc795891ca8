package api

import (
	"github.com/google/uuid"

	"github.com/hackgods/clinic-management/internal/appointment"
	"github.com/hackgods/clinic-management/internal/voice"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	Current  string `json:"current_password"`
	Password string `json:"password"`
}

type StatusRequest struct {
	Statut appointment.Status `json:"statut"`
}

// VoiceBookingRequest carries a transcribed phrase. Without Confirm, or when
// the phrase lacks a date or a time, only the parsed slot is returned.
type VoiceBookingRequest struct {
	Text      string    `json:"text"`
	MedecinID uuid.UUID `json:"medecin_id"`
	Motif     string    `json:"motif"`
	Confirm   bool      `json:"confirm"`
}

type VoiceBookingResponse struct {
	Parsed     voice.Result        `json:"parsed"`
	RendezVous *appointment.Booked `json:"rendezvous,omitempty"`
}

type RequestRequest struct {
	MedecinID uuid.UUID `json:"medecin_id"`
	Contenu   string    `json:"contenu"`
}

type SendMessageRequest struct {
	ReceiverID uuid.UUID `json:"receiver_id"`
	Contenu    string    `json:"contenu"`
}

type TriageRequest struct {
	Symptoms string `json:"symptoms"`
}

type StatsResponse struct {
	Users       map[string]int `json:"users"`
	RendezVous  map[string]int `json:"rendezvous"`
	Ordonnances int            `json:"ordonnances"`
}
