package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/hackgods/clinic-management/internal/analysis"
	"github.com/hackgods/clinic-management/internal/appointment"
	"github.com/hackgods/clinic-management/internal/prescription"
	"github.com/hackgods/clinic-management/internal/specialty"
	"github.com/hackgods/clinic-management/internal/voice"
)

func patientAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListForPatient(r.Context(), CurrentUser(r.Context()).ID)
		if err != nil {
			handleError(w, r, err)
			return
		}
		if list == nil {
			list = []appointment.Detail{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func bookAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req appointment.BookInput
		if !decodeJSON(w, r, &req) {
			return
		}
		booked, err := svc.Book(r.Context(), CurrentUser(r.Context()).ID, req)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, booked)
	}
}

func voiceBookingHandler(svc AppointmentService, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VoiceBookingRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		parsed, err := voice.Parse(req.Text, time.Now().In(loc))
		if err != nil {
			handleError(w, r, err)
			return
		}

		resp := VoiceBookingResponse{Parsed: parsed}
		if !req.Confirm || parsed.Date == "" || parsed.Heure == "" {
			writeJSON(w, http.StatusOK, resp)
			return
		}

		booked, err := svc.Book(r.Context(), CurrentUser(r.Context()).ID, appointment.BookInput{
			MedecinID: req.MedecinID,
			Date:      parsed.Date,
			Heure:     parsed.Heure,
			Motif:     req.Motif,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		resp.RendezVous = booked
		writeJSON(w, http.StatusCreated, resp)
	}
}

func cancelAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		rv, err := svc.Cancel(r.Context(), CurrentUser(r.Context()).ID, id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rv)
	}
}

func appointmentPDFHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		data, err := svc.PDF(r.Context(), CurrentUser(r.Context()).ID, id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writePDF(w, "rendez-vous-"+id.String()[:8]+".pdf", data)
	}
}

func patientPrescriptionsHandler(svc PrescriptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListByPatient(r.Context(), CurrentUser(r.Context()).ID)
		if err != nil {
			handleError(w, r, err)
			return
		}
		if list == nil {
			list = []prescription.Ordonnance{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func prescriptionPDFHandler(svc PrescriptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		data, err := svc.PDF(r.Context(), CurrentUser(r.Context()).ID, id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writePDF(w, "ordonnance-"+id.String()[:8]+".pdf", data)
	}
}

func explainPrescriptionHandler(svc AnalysisService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		a, err := svc.Explain(r.Context(), CurrentUser(r.Context()).ID, id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func sendRequestHandler(svc MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RequestRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		m, err := svc.SendRequest(r.Context(), CurrentUser(r.Context()).ID, req.MedecinID, req.Contenu)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	}
}

func triageHandler(svc TriageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TriageRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err := svc.Triage(r.Context(), CurrentUser(r.Context()).ID, req.Symptoms)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func triageHistoryHandler(svc TriageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.History(r.Context(), CurrentUser(r.Context()).ID, queryInt(r, "limit", 0))
		if err != nil {
			handleError(w, r, err)
			return
		}
		if list == nil {
			list = []specialty.ChatMessage{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func uploadAnalysisHandler(svc AnalysisService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "file_too_large", "file must be at most 10 MB")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid_multipart", "expected a multipart form with a file field")
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing_file", "file field is required")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_file", "could not read the uploaded file")
			return
		}

		a, err := svc.Analyze(r.Context(), CurrentUser(r.Context()).ID, header.Filename, data)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

func listAnalysesHandler(svc AnalysisService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context(), CurrentUser(r.Context()).ID)
		if err != nil {
			handleError(w, r, err)
			return
		}
		if list == nil {
			list = []analysis.Analyse{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
