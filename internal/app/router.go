package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/atheneum-lms/atheneum/internal/authz"
	"github.com/atheneum-lms/atheneum/internal/escalation"
	"github.com/atheneum-lms/atheneum/internal/lookup"
	"github.com/atheneum-lms/atheneum/internal/observability"
	"github.com/atheneum-lms/atheneum/internal/permissions"
	"github.com/atheneum-lms/atheneum/internal/roles"
	"github.com/atheneum-lms/atheneum/internal/shared"
	"github.com/atheneum-lms/atheneum/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	Authz          authz.Middleware

	LookupHandler      *lookup.Handler
	RolesHandler       *roles.Handler
	PermissionsHandler *permissions.Handler
	EscalationHandler  *escalation.Handler
	JobsHandler        *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Atheneum defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Everything below requires an authenticated session.
	r.Group(func(r chi.Router) {
		r.Use(params.Authz.Authenticate)

		if params.LookupHandler != nil {
			r.Route("/lookups", func(r chi.Router) {
				params.LookupHandler.MountRoutes(r)
				r.Group(func(r chi.Router) {
					r.Use(params.Authz.RequireEscalation())
					params.LookupHandler.MountAdminRoutes(r)
				})
			})
		}
		if params.RolesHandler != nil {
			r.Route("/roles", func(r chi.Router) {
				r.Use(params.Authz.RequireAny("admin:roles:manage"))
				params.RolesHandler.MountRoutes(r)
			})
		}
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
		if params.EscalationHandler != nil {
			r.Route("/escalation", params.EscalationHandler.MountRoutes)
		}
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
