package escalation

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atheneum-lms/atheneum/internal/platform/httpx"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Handler exposes the explicit elevation and revocation steps.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers escalation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/elevate", h.elevate)
	r.Delete("/", h.revoke)
}

type elevateRequest struct {
	Password string `json:"password" validate:"required"`
}

type elevateResponse struct {
	Token   string   `json:"token"`
	Session *Session `json:"session"`
}

func (h *Handler) elevate(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if !identity.Authenticated {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}

	var req elevateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "password required")
		return
	}

	token, session, err := h.service.Elevate(r.Context(), identity.UserID, req.Password)
	if err != nil {
		h.logger.Warn("elevation rejected", slog.Int64("user_id", identity.UserID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, elevateResponse{Token: token, Session: session})
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if !identity.Authenticated {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	if err := h.service.Revoke(r.Context(), identity.UserID); err != nil {
		h.logger.Warn("revoke escalation", slog.Int64("user_id", identity.UserID), slog.Any("error", err))
	}
	w.WriteHeader(http.StatusNoContent)
}
