package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-management/internal/user"
)

func urlID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func registerHandler(svc AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req user.CreateInput
		if !decodeJSON(w, r, &req) {
			return
		}
		u, err := svc.Register(r.Context(), req)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, u)
	}
}

func loginHandler(svc AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		session, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, session)
	}
}

func forgotPasswordHandler(svc AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ForgotPasswordRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := svc.RequestReset(r.Context(), req.Email); err != nil {
			handleError(w, r, err)
			return
		}
		// same answer whether or not the address exists
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
	}
}

func resetPasswordHandler(svc AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResetPasswordRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := svc.ResetPassword(r.Context(), req.Email, req.Code, req.Password); err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "password_updated"})
	}
}

func meHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, CurrentUser(r.Context()))
	}
}

func changePasswordHandler(svc AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChangePasswordRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		me := CurrentUser(r.Context())
		if err := svc.ChangePassword(r.Context(), me.ID, req.Current, req.Password); err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "password_updated"})
	}
}

func listMedecinsHandler(svc UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListMedecins(r.Context(), r.URL.Query().Get("specialite"))
		if err != nil {
			handleError(w, r, err)
			return
		}
		if list == nil {
			list = []user.Medecin{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func updateProfileHandler(svc UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req user.UpdateInput
		if !decodeJSON(w, r, &req) {
			return
		}
		me := CurrentUser(r.Context())
		u, err := svc.Update(r.Context(), me.ID, me.ID, req, false)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}
