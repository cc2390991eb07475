package permissions

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atheneum-lms/atheneum/internal/platform/httpx"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Handler exposes permission introspection and the invalidation hooks that
// external mutators (role, membership and department management) call after
// changing anything that feeds effective rights.
type Handler struct {
	logger  *slog.Logger
	service *Service
	// requireManage guards the mutation hooks; wired by the router from the
	// enforcement layer to avoid a package cycle.
	requireManage func(http.Handler) http.Handler
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, requireManage func(http.Handler) http.Handler) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, requireManage: requireManage}
}

// MountRoutes registers permission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me", h.myPermissions)
	r.Group(func(r chi.Router) {
		if h.requireManage != nil {
			r.Use(h.requireManage)
		}
		r.Post("/{userID}/invalidate", h.invalidate)
		r.Post("/{userID}/bump-version", h.bumpVersion)
	})
}

func (h *Handler) myPermissions(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if !identity.Authenticated {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	payload, err := h.service.EffectiveFor(r.Context(), identity.UserID, identity.PermissionVersion)
	if err != nil {
		h.logger.Error("resolve own permissions", slog.Int64("user_id", identity.UserID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payload)
}

func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}
	if err := h.service.Invalidate(r.Context(), userID); err != nil {
		h.logger.Warn("invalidate permissions", slog.Int64("user_id", userID), slog.Any("error", err))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) bumpVersion(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}
	version, err := h.service.BumpVersion(r.Context(), userID)
	if err != nil {
		h.logger.Error("bump permission version", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Store Unavailable", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"version": version})
}

func (h *Handler) userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid User", "")
		return 0, false
	}
	return userID, true
}
