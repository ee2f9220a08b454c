package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/krishi-kendra/krishi-kendra/internal/auth"
	"github.com/krishi-kendra/krishi-kendra/internal/billing"
	"github.com/krishi-kendra/krishi-kendra/internal/catalog"
	"github.com/krishi-kendra/krishi-kendra/internal/observability"
	"github.com/krishi-kendra/krishi-kendra/internal/platform/httpx"
	"github.com/krishi-kendra/krishi-kendra/internal/purchases"
	"github.com/krishi-kendra/krishi-kendra/internal/reporting"
	"github.com/krishi-kendra/krishi-kendra/internal/shared"
	"github.com/krishi-kendra/krishi-kendra/jobs"
)

// Pinger reports whether a backing store is reachable.
type Pinger func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	Metrics          *observability.Metrics
	AuthHandler      *auth.Handler
	CatalogHandler   *catalog.Handler
	BillingHandler   *billing.Handler
	ReportingHandler *reporting.Handler
	PurchasesHandler *purchases.Handler
	JobHandler       *jobs.Handler
	// Ready lists dependency checks for /readyz, keyed by name.
	Ready map[string]Pinger
}

// NewRouter constructs the chi.Router with the shop API defaults.
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

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(params.Ready))

	r.Route("/api", func(r chi.Router) {
		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
			r.Route("/users", params.AuthHandler.MountUserRoutes)
		}
		if params.CatalogHandler != nil {
			r.Route("/products", params.CatalogHandler.MountRoutes)
		}
		if params.BillingHandler != nil {
			r.Route("/bills", params.BillingHandler.MountRoutes)
		}
		if params.ReportingHandler != nil {
			r.Route("/reports", params.ReportingHandler.MountRoutes)
		}
		if params.PurchasesHandler != nil {
			r.Route("/purchases", params.PurchasesHandler.MountRoutes)
			r.Route("/company", params.PurchasesHandler.MountRoutes)
		}
	})
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, http.StatusText(http.StatusNotFound), "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed), "")
	})
	return r
}

func readiness(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := http.StatusOK
		out := make(map[string]string, len(checks))
		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				out[name] = err.Error()
				continue
			}
			out[name] = "ok"
		}
		httpx.JSON(w, status, out)
	}
}
