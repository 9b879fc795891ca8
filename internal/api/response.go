package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/hackgods/clinic-management/internal/analysis"
	"github.com/hackgods/clinic-management/internal/appointment"
	"github.com/hackgods/clinic-management/internal/auth"
	"github.com/hackgods/clinic-management/internal/llm"
	"github.com/hackgods/clinic-management/internal/message"
	"github.com/hackgods/clinic-management/internal/prescription"
	"github.com/hackgods/clinic-management/internal/specialty"
	"github.com/hackgods/clinic-management/internal/user"
	"github.com/hackgods/clinic-management/internal/validation"
	"github.com/hackgods/clinic-management/internal/voice"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code string, details any) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func writePDF(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{user.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{appointment.ErrRendezVousNotFound, http.StatusNotFound, "rendezvous_not_found"},
	{prescription.ErrOrdonnanceNotFound, http.StatusNotFound, "ordonnance_not_found"},
	{message.ErrMessageNotFound, http.StatusNotFound, "message_not_found"},

	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},

	{auth.ErrAccountDisabled, http.StatusForbidden, "account_disabled"},
	{appointment.ErrNotOwner, http.StatusForbidden, "not_owner"},
	{prescription.ErrNotAuthor, http.StatusForbidden, "not_author"},
	{message.ErrForbidden, http.StatusForbidden, "forbidden"},
	{message.ErrNotConnected, http.StatusForbidden, "not_connected"},
	{user.ErrCannotSelfAdmin, http.StatusForbidden, "cannot_self_admin"},

	{appointment.ErrSlotTaken, http.StatusConflict, "slot_taken"},
	{appointment.ErrSlotBeingBooked, http.StatusConflict, "slot_being_booked"},
	{appointment.ErrInvalidTransition, http.StatusConflict, "invalid_status_transition"},
	{user.ErrEmailTaken, http.StatusConflict, "email_taken"},
	{message.ErrRequestAlreadyPending, http.StatusConflict, "request_already_pending"},
	{message.ErrRequestNotPending, http.StatusConflict, "request_not_pending"},

	{appointment.ErrSlotInPast, http.StatusBadRequest, "slot_in_past"},
	{user.ErrNotMedecin, http.StatusBadRequest, "not_medecin"},
	{user.ErrNotPatient, http.StatusBadRequest, "not_patient"},
	{auth.ErrInvalidResetCode, http.StatusBadRequest, "invalid_reset_code"},
	{auth.ErrWrongPassword, http.StatusBadRequest, "wrong_password"},
	{specialty.ErrEmptySymptoms, http.StatusBadRequest, "empty_symptoms"},
	{voice.ErrNoDateTime, http.StatusBadRequest, "no_date_time"},
	{voice.ErrInvalidDate, http.StatusBadRequest, "invalid_date"},
	{voice.ErrInvalidTime, http.StatusBadRequest, "invalid_time"},
	{analysis.ErrUnsupportedFile, http.StatusUnsupportedMediaType, "unsupported_file"},
	{analysis.ErrNoText, http.StatusUnprocessableEntity, "no_text"},

	{llm.ErrUpstream, http.StatusBadGateway, "ai_unavailable"},
}

// handleError maps service errors to HTTP responses. Unknown errors are
// logged and reported as 500 without their text.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var v validation.Violations
	if errors.As(err, &v) {
		writeError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, m.err.Error())
			return
		}
	}
	log.Printf("internal error request_id=%s: %v", GetRequestID(r.Context()), err)
	writeError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
}
