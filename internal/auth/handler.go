package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/krishi-kendra/krishi-kendra/internal/platform/httpx"
	"github.com/krishi-kendra/krishi-kendra/internal/shared"
)

// Handler wires HTTP endpoints for authentication and profile flows.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(RequireUser)
		r.Post("/logout", h.handleLogout)
		r.Get("/me", h.handleProfile)
	})
}

// MountUserRoutes registers the signed-in user's profile routes.
func (h *Handler) MountUserRoutes(r chi.Router) {
	r.Use(RequireUser)
	r.Get("/profile", h.handleProfile)
	r.Put("/profile", h.handleUpdateProfile)
	r.Put("/password", h.handleChangePassword)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	resp, err := h.service.Register(r.Context(), in)
	if err != nil {
		h.fail(w, r, "register", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	resp, err := h.service.Login(r.Context(), in)
	if err != nil {
		h.fail(w, r, "login", err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), shared.SessionFromContext(r.Context())); err != nil {
		h.logger.WarnContext(r.Context(), "remove session", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Profile(r.Context(), shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, "load profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in ProfileInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	user, err := h.service.UpdateProfile(r.Context(), shared.ActorFromContext(r.Context()), in)
	if err != nil {
		h.fail(w, r, "update profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var in PasswordInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.service.ChangePassword(r.Context(), shared.ActorFromContext(r.Context()), in); err != nil {
		h.fail(w, r, "change password", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), op+" failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
