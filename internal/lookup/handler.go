package lookup

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atheneum-lms/atheneum/internal/platform/httpx"
)

// Handler exposes the validation catalog over HTTP. The refresh route is
// mounted behind an admin guard by the router.
type Handler struct {
	logger   *slog.Logger
	registry *Registry
}

func NewHandler(logger *slog.Logger, registry *Registry) *Handler {
	return &Handler{logger: logger, registry: registry}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/user-types", h.listUserTypes)
	r.Get("/user-types/{key}/roles", h.listRoles)
}

// MountAdminRoutes mounts the mutating catalog routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Post("/refresh", h.refresh)
}

func (h *Handler) listUserTypes(w http.ResponseWriter, r *http.Request) {
	keys, err := h.registry.ValidUserTypes()
	if err != nil {
		h.logger.Error("list user types", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"userTypes": h.registry.HydrateUserTypes(keys)})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	userType := chi.URLParam(r, "key")
	roles, err := h.registry.ValidRolesForUserType(userType)
	if err != nil {
		h.logger.Error("list roles for user type",
			slog.String("user_type", userType), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"userType": userType,
		"roles":    h.registry.HydrateRoles(roles),
	})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Refresh(r.Context()); err != nil {
		h.logger.Error("registry refresh", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}
