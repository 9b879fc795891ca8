package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-management/internal/activity"
	"github.com/hackgods/clinic-management/internal/appointment"
	"github.com/hackgods/clinic-management/internal/user"
)

func listUsersHandler(svc UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := user.Filter{
			Role:       user.Role(q.Get("role")),
			Specialite: q.Get("specialite"),
			Search:     q.Get("q"),
			ActiveOnly: q.Get("active") == "true",
			Limit:      queryInt(r, "limit", 0),
			Offset:     queryInt(r, "offset", 0),
		}
		list, err := svc.List(r.Context(), f)
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

func createUserHandler(svc UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req user.CreateInput
		if !decodeJSON(w, r, &req) {
			return
		}
		u, err := svc.Create(r.Context(), CurrentUser(r.Context()).ID, req)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, u)
	}
}

func getUserHandler(svc UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		u, err := svc.Get(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func adminUpdateUserHandler(svc UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		var req user.UpdateInput
		if !decodeJSON(w, r, &req) {
			return
		}
		u, err := svc.Update(r.Context(), CurrentUser(r.Context()).ID, id, req, true)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func deleteUserHandler(svc UserService) http.HandlerFunc {
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

func setActiveHandler(svc UserService, active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		if err := svc.SetActive(r.Context(), CurrentUser(r.Context()).ID, id, active); err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_active": active})
	}
}

func adminAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := appointment.Filter{
			Statut: appointment.Status(q.Get("statut")),
			Date:   q.Get("date"),
			Limit:  queryInt(r, "limit", 0),
			Offset: queryInt(r, "offset", 0),
		}
		for key, dst := range map[string]**uuid.UUID{"medecin_id": &f.MedecinID, "patient_id": &f.PatientID} {
			v := q.Get(key)
			if v == "" {
				continue
			}
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_"+key, key+" must be a valid UUID")
				return
			}
			*dst = &id
		}

		list, err := svc.ListAll(r.Context(), f)
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

func adminUpdateAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(w, r, "id")
		if !ok {
			return
		}
		var req appointment.AdminUpdateInput
		if !decodeJSON(w, r, &req) {
			return
		}
		rv, err := svc.AdminUpdate(r.Context(), CurrentUser(r.Context()).ID, id, req)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rv)
	}
}

func adminDeleteAppointmentHandler(svc AppointmentService) http.HandlerFunc {
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

func activitiesHandler(svc ActivityLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListRecent(r.Context(), queryInt(r, "limit", 0), queryInt(r, "offset", 0))
		if err != nil {
			handleError(w, r, err)
			return
		}
		if list == nil {
			list = []activity.Activity{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func statsHandler(users UserService, appointments AppointmentService, prescriptions PrescriptionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		byRole, err := users.CountByRole(ctx)
		if err != nil {
			handleError(w, r, err)
			return
		}
		byStatus, err := appointments.CountByStatus(ctx)
		if err != nil {
			handleError(w, r, err)
			return
		}
		ordonnances, err := prescriptions.Count(ctx)
		if err != nil {
			handleError(w, r, err)
			return
		}

		resp := StatsResponse{
			Users:       map[string]int{},
			RendezVous:  map[string]int{},
			Ordonnances: ordonnances,
		}
		for _, role := range []user.Role{user.RolePatient, user.RoleMedecin, user.RoleAdmin} {
			resp.Users[string(role)] = byRole[role]
		}
		for _, s := range []appointment.Status{appointment.StatusUpcoming, appointment.StatusPast, appointment.StatusCancelled} {
			resp.RendezVous[string(s)] = byStatus[s]
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
