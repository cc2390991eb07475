package roles

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atheneum-lms/atheneum/internal/platform/httpx"
	"github.com/atheneum-lms/atheneum/internal/rights"
)

// Invalidator enqueues the bulk permission invalidation that must follow a
// role-definition change. Enqueued, not inline: invalidate-all is expensive
// and edits arriving in a burst should collapse into one sweep.
type Invalidator interface {
	EnqueueInvalidateAll(ctx context.Context) error
}

// Handler exposes role-definition management.
type Handler struct {
	logger      *slog.Logger
	repo        Repository
	invalidator Invalidator
	validate    *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, repo Repository, invalidator Invalidator) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		repo:        repo,
		invalidator: invalidator,
		validate:    validator.New(),
	}
}

// MountRoutes registers role-definition routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listRoles)
	r.Get("/{name}", h.getRole)
	r.Put("/{name}/rights", h.updateRights)
}

type roleResponse struct {
	Name         string   `json:"name"`
	AccessRights []string `json:"accessRights"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	defs, err := h.repo.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]roleResponse, 0, len(defs))
	for _, def := range defs {
		out = append(out, roleResponse{Name: def.Name, AccessRights: def.AccessRights})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	def, err := h.repo.GetRole(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, roleResponse{Name: def.Name, AccessRights: def.AccessRights})
}

type updateRightsRequest struct {
	AccessRights []string `json:"accessRights" validate:"required,min=1,dive,required"`
}

func (h *Handler) updateRights(w http.ResponseWriter, r *http.Request) {
	var req updateRightsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	for _, right := range req.AccessRights {
		if err := rights.Validate(right); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
	}

	name := chi.URLParam(r, "name")
	def, err := h.repo.UpdateRoleRights(r.Context(), name, req.AccessRights)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	if h.invalidator != nil {
		if err := h.invalidator.EnqueueInvalidateAll(r.Context()); err != nil {
			// The TTL safety net covers a missed sweep; the edit itself stands.
			h.logger.Error("enqueue permission sweep", slog.String("role", name), slog.Any("error", err))
		}
	}

	httpx.JSON(w, http.StatusOK, roleResponse{Name: def.Name, AccessRights: def.AccessRights})
}
