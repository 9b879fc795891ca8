package api

import (
	"net/http"

	"github.com/hackgods/clinic-management/internal/appointment"
	"github.com/hackgods/clinic-management/internal/message"
	"github.com/hackgods/clinic-management/internal/prescription"
	"github.com/hackgods/clinic-management/internal/user"
)

func medecinAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statut := appointment.Status(r.URL.Query().Get("statut"))
		list, err := svc.ListForMedecin(r.Context(), CurrentUser(r.Context()).ID, statut)
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

func updateStatusHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		var req StatusRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		rv, err := svc.UpdateStatus(r.Context(), CurrentUser(r.Context()).ID, id, req.Statut)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rv)
	}
}

func medecinPatientsHandler(svc UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListPatientsOf(r.Context(), CurrentUser(r.Context()).ID)
		if err != nil {
			handleError(w, r, err)
			return
		}
		if list == nil {
			list = []user.User{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func createPrescriptionHandler(svc PrescriptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req prescription.Input
		if !decodeJSON(w, r, &req) {
			return
		}
		created, err := svc.Create(r.Context(), CurrentUser(r.Context()).ID, req)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func medecinPrescriptionsHandler(svc PrescriptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListByMedecin(r.Context(), CurrentUser(r.Context()).ID)
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

func updatePrescriptionHandler(svc PrescriptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		var req prescription.Input
		if !decodeJSON(w, r, &req) {
			return
		}
		o, err := svc.Update(r.Context(), CurrentUser(r.Context()).ID, id, req)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}

func deletePrescriptionHandler(svc PrescriptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), CurrentUser(r.Context()).ID, id); err != nil {
			handleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func pendingRequestsHandler(svc MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.PendingRequests(r.Context(), CurrentUser(r.Context()).ID)
		if err != nil {
			handleError(w, r, err)
			return
		}
		if list == nil {
			list = []message.Message{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func acceptRequestHandler(svc MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		reply, err := svc.Accept(r.Context(), CurrentUser(r.Context()).ID, id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, reply)
	}
}

func rejectRequestHandler(svc MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		req, err := svc.Reject(r.Context(), CurrentUser(r.Context()).ID, id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, req)
	}
}
