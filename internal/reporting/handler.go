package reporting

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/krishi-kendra/krishi-kendra/internal/platform/httpx"
)

// Handler exposes read-only report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   func(http.Handler) http.Handler
}

// NewHandler constructs Handler. guard protects every route.
func NewHandler(logger *slog.Logger, service *Service, guard func(http.Handler) http.Handler) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	if h.guard != nil {
		r.Use(h.guard)
	}
	r.Get("/dashboard", h.serve("dashboard", func(ctx context.Context) (any, error) { return h.service.Dashboard(ctx) }))
	r.Get("/sales", h.serve("sales", func(ctx context.Context) (any, error) { return h.service.SalesReport(ctx) }))
	r.Get("/udhaar", h.serve("udhaar", func(ctx context.Context) (any, error) { return h.service.UdhaarReport(ctx) }))
	r.Get("/stock", h.serve("stock", func(ctx context.Context) (any, error) { return h.service.StockReport(ctx) }))
	r.Get("/product-sales", h.serve("product-sales", func(ctx context.Context) (any, error) { return h.service.ProductSalesReport(ctx) }))
}

func (h *Handler) serve(name string, load func(context.Context) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := load(r.Context())
		if err != nil {
			h.logger.ErrorContext(r.Context(), "report failed", slog.String("report", name), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, report)
	}
}
