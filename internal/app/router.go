package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/shiftline/shiftline/internal/auth"
	"github.com/shiftline/shiftline/internal/observability"
	"github.com/shiftline/shiftline/internal/rbac"
	"github.com/shiftline/shiftline/internal/shared"
	"github.com/shiftline/shiftline/internal/timesheet/declarations"
	"github.com/shiftline/shiftline/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	AuthHandler      *auth.Handler
	TimesheetHandler *declarations.Handler
	JobHandler       *jobs.Handler
	RBACMiddleware   rbac.Middleware
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Shiftline defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
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

	if params.Metrics != nil {
		r.Get("/metrics", params.Metrics.Handler().ServeHTTP)
	}

	if params.AuthHandler != nil {
		r.Post("/login", params.AuthHandler.Login)
		r.Post("/logout", params.AuthHandler.Logout)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(requireAuthenticated(params.Logger))
		if params.TimesheetHandler != nil {
			params.TimesheetHandler.MountRoutes(api, params.RBACMiddleware)
		}
		if params.JobHandler != nil {
			api.Route("/jobs", func(r chi.Router) {
				params.JobHandler.MountRoutes(r, params.RBACMiddleware)
			})
		}
	})

	return r
}

func requireAuthenticated(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil || sess.User() == "" {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
