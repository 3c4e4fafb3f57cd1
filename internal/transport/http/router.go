// Package transporthttp assembles the API router: middleware stack, public
// routes, authenticated routes and the admin-only subtree.
package transporthttp

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	audithandler "arabesque/internal/audit/handler"
	authhandler "arabesque/internal/auth/handler"
	billinghandler "arabesque/internal/billing/handler"
	bookinghandler "arabesque/internal/booking/handler"
	"arabesque/internal/identity"
	identityhandler "arabesque/internal/identity/handler"
	"arabesque/internal/platform/metrics"
	"arabesque/internal/platform/middleware"
	schedulinghandler "arabesque/internal/scheduling/handler"
	"arabesque/internal/transport/http/shared"
)

// Handlers bundles the per-domain handlers the router mounts.
type Handlers struct {
	Auth       *authhandler.Handler
	Identity   *identityhandler.Handler
	Scheduling *schedulinghandler.Handler
	Booking    *bookinghandler.Handler
	Billing    *billinghandler.Handler
	Audit      *audithandler.Handler
}

// Deps is everything the router needs besides the handlers.
type Deps struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Registry  *prometheus.Registry
	Validator middleware.TokenValidator
	DB        *sql.DB // nil in databaseless runs
}

// New builds the full router.
func New(deps Deps, handlers Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.Latency(deps.Metrics))

	r.Get("/healthz", healthHandler(deps.DB))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))

	requireAdmin := middleware.RequireRole(string(identity.RoleAdmin))

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.ContentTypeJSON)

		api.Group(func(public chi.Router) {
			handlers.Auth.RegisterPublic(public)
			handlers.Identity.RegisterPublic(public)
		})

		api.Group(func(protected chi.Router) {
			protected.Use(middleware.RequireAuth(deps.Validator, deps.Logger))

			handlers.Auth.RegisterProtected(protected)
			handlers.Identity.RegisterProtected(protected, requireAdmin)
			handlers.Scheduling.Register(protected, requireAdmin)
			handlers.Booking.Register(protected)
			handlers.Billing.Register(protected, requireAdmin)
			handlers.Audit.Register(protected, requireAdmin)
		})
	})

	return r
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				shared.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
