package billing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/krishi-kendra/krishi-kendra/internal/platform/httpx"
	"github.com/krishi-kendra/krishi-kendra/internal/shared"
)

// Handler exposes bills over JSON.
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

// MountRoutes registers bill routes.
func (h *Handler) MountRoutes(r chi.Router) {
	if h.guard != nil {
		r.Use(h.guard)
	}
	r.Get("/", h.handleList)
	r.Get("/pending", h.handlePending)
	r.Get("/pending/list", h.handlePending)
	r.Get("/{id}", h.handleGet)
	r.Post("/", h.handleCreate)
	r.Patch("/{id}/status", h.handleUpdateStatus)
	r.Delete("/{id}", h.handleDelete)
}

type statusRequest struct {
	Status Status `json:"status"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bills, err := h.service.ListBills(r.Context(), ListFilter{
		Status:      Status(q.Get("status")),
		PaymentMode: PaymentMode(q.Get("paymentMode")),
		Search:      q.Get("search"),
	})
	if err != nil {
		h.fail(w, r, "list bills", err)
		return
	}
	httpx.JSON(w, http.StatusOK, bills)
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	bills, err := h.service.ListPending(r.Context())
	if err != nil {
		h.fail(w, r, "list pending bills", err)
		return
	}
	httpx.JSON(w, http.StatusOK, bills)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := billID(w, r)
	if !ok {
		return
	}
	bill, err := h.service.GetBill(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get bill", err)
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input CreateBillInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	bill, err := h.service.CreateBill(r.Context(), input, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, "create bill", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, bill)
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := billID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	bill, err := h.service.UpdateStatus(r.Context(), id, req.Status, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, "update bill status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := billID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteBill(r.Context(), id, shared.ActorFromContext(r.Context())); err != nil {
		h.fail(w, r, "delete bill", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Bill deleted and stock restored"})
}

func billID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), op+" failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
