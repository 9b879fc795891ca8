package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hackgods/clinic-management/internal/user"
)

type RouterConfig struct {
	Auth          AuthService
	Users         UserService
	Appointments  AppointmentService
	Prescriptions PrescriptionService
	Messages      MessageService
	Triage        TriageService
	Analyses      AnalysisService
	Activities    ActivityLister

	PgPool   PgPinger
	Redis    RedisPinger
	Location *time.Location
	Env      string
	Version  string

	CORSOrigins []string
}

// maxUploadBytes caps prescription uploads.
const maxUploadBytes = 10 << 20

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins(cfg.CORSOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Public auth endpoints
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", registerHandler(cfg.Auth))
		r.Post("/login", loginHandler(cfg.Auth))
		r.Post("/forgot-password", forgotPasswordHandler(cfg.Auth))
		r.Post("/reset-password", resetPasswordHandler(cfg.Auth))

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(cfg.Auth))
			r.Get("/me", meHandler())
			r.Post("/change-password", changePasswordHandler(cfg.Auth))
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(cfg.Auth))

		r.Get("/medecins", listMedecinsHandler(cfg.Users))

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", inboxHandler(cfg.Messages))
			r.Post("/", sendMessageHandler(cfg.Messages))
			r.Get("/stream", messageStreamHandler(cfg.Messages))
			r.Get("/{id}", conversationHandler(cfg.Messages))
			r.Delete("/{id}", deleteMessageHandler(cfg.Messages))
		})

		r.Route("/patient", func(r chi.Router) {
			r.Use(RequireRole(user.RolePatient))

			r.Get("/profile", meHandler())
			r.Put("/profile", updateProfileHandler(cfg.Users))

			r.Get("/rendezvous", patientAppointmentsHandler(cfg.Appointments))
			r.Post("/rendezvous", bookAppointmentHandler(cfg.Appointments))
			r.Post("/rendezvous/voice", voiceBookingHandler(cfg.Appointments, cfg.Location))
			r.Post("/rendezvous/{id}/cancel", cancelAppointmentHandler(cfg.Appointments))
			r.Get("/rendezvous/{id}/pdf", appointmentPDFHandler(cfg.Appointments))

			r.Get("/ordonnances", patientPrescriptionsHandler(cfg.Prescriptions))
			r.Get("/ordonnances/{id}/pdf", prescriptionPDFHandler(cfg.Prescriptions))
			r.Post("/ordonnances/{id}/explain", explainPrescriptionHandler(cfg.Analyses))

			r.Post("/demandes", sendRequestHandler(cfg.Messages))

			r.Post("/triage", triageHandler(cfg.Triage))
			r.Get("/triage", triageHistoryHandler(cfg.Triage))

			r.Post("/analyses", uploadAnalysisHandler(cfg.Analyses))
			r.Get("/analyses", listAnalysesHandler(cfg.Analyses))
		})

		r.Route("/medecin", func(r chi.Router) {
			r.Use(RequireRole(user.RoleMedecin))

			r.Get("/rendezvous", medecinAppointmentsHandler(cfg.Appointments))
			r.Patch("/rendezvous/{id}/status", updateStatusHandler(cfg.Appointments))
			r.Get("/patients", medecinPatientsHandler(cfg.Users))

			r.Post("/ordonnances", createPrescriptionHandler(cfg.Prescriptions))
			r.Get("/ordonnances", medecinPrescriptionsHandler(cfg.Prescriptions))
			r.Put("/ordonnances/{id}", updatePrescriptionHandler(cfg.Prescriptions))
			r.Delete("/ordonnances/{id}", deletePrescriptionHandler(cfg.Prescriptions))

			r.Get("/demandes", pendingRequestsHandler(cfg.Messages))
			r.Post("/demandes/{id}/accept", acceptRequestHandler(cfg.Messages))
			r.Post("/demandes/{id}/reject", rejectRequestHandler(cfg.Messages))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireRole(user.RoleAdmin))

			r.Get("/users", listUsersHandler(cfg.Users))
			r.Post("/users", createUserHandler(cfg.Users))
			r.Get("/users/{id}", getUserHandler(cfg.Users))
			r.Put("/users/{id}", adminUpdateUserHandler(cfg.Users))
			r.Delete("/users/{id}", deleteUserHandler(cfg.Users))
			r.Post("/users/{id}/activate", setActiveHandler(cfg.Users, true))
			r.Post("/users/{id}/deactivate", setActiveHandler(cfg.Users, false))

			r.Get("/rendezvous", adminAppointmentsHandler(cfg.Appointments))
			r.Put("/rendezvous/{id}", adminUpdateAppointmentHandler(cfg.Appointments))
			r.Delete("/rendezvous/{id}", adminDeleteAppointmentHandler(cfg.Appointments))

			r.Get("/activities", activitiesHandler(cfg.Activities))
			r.Get("/stats", statsHandler(cfg.Users, cfg.Appointments, cfg.Prescriptions))
		})
	})

	return r
}

func corsOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
