package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Registry caches the set of valid user categories and roles-per-category.
// It is loaded once at startup and refreshed by swapping a fully built
// replacement index, so concurrent readers never observe a half-updated
// state.
type Registry struct {
	repo   Repository
	logger *slog.Logger
	idx    atomic.Pointer[indices]
}

type indices struct {
	userTypes       []string
	rolesByUserType map[string][]string
	displayByID     map[string]string
}

// NewRegistry constructs an uninitialized registry.
func NewRegistry(repo Repository, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{repo: repo, logger: logger}
}

// Initialize bulk loads active lookup values and builds the indices. Zero
// loaded rows is a misconfiguration signal and stops startup.
func (r *Registry) Initialize(ctx context.Context) error {
	idx, err := r.build(ctx)
	if err != nil {
		return err
	}
	r.idx.Store(idx)
	r.logger.Info("lookup registry initialized",
		slog.Int("user_types", len(idx.userTypes)),
		slog.Int("display_entries", len(idx.displayByID)))
	return nil
}

// Refresh reloads the lookup table and atomically swaps both indices. On
// failure the previous indices stay intact and the error surfaces to the
// caller.
func (r *Registry) Refresh(ctx context.Context) error {
	idx, err := r.build(ctx)
	if err != nil {
		return err
	}
	r.idx.Store(idx)
	r.logger.Info("lookup registry refreshed", slog.Int("user_types", len(idx.userTypes)))
	return nil
}

// IsInitialized reports readiness.
func (r *Registry) IsInitialized() bool {
	return r.idx.Load() != nil
}

// ValidUserTypes returns every known user type key in sort order.
func (r *Registry) ValidUserTypes() ([]string, error) {
	idx := r.idx.Load()
	if idx == nil {
		return nil, shared.ErrNotInitialized
	}
	out := make([]string, len(idx.userTypes))
	copy(out, idx.userTypes)
	return out, nil
}

// ValidRolesForUserType returns the role keys valid for a user type, in sort
// order.
func (r *Registry) ValidRolesForUserType(userType string) ([]string, error) {
	idx := r.idx.Load()
	if idx == nil {
		return nil, shared.ErrNotInitialized
	}
	roles, ok := idx.rolesByUserType[normalizeKey(userType)]
	if !ok {
		return nil, fmt.Errorf("lookup: user type %q: %w", userType, shared.ErrNotFound)
	}
	out := make([]string, len(roles))
	copy(out, roles)
	return out, nil
}

// IsValidUserType reports whether the key is a known user type. Boolean
// predicates fail closed before initialization: an authorization check must
// never crash the request path.
func (r *Registry) IsValidUserType(userType string) bool {
	idx := r.idx.Load()
	if idx == nil {
		return false
	}
	_, ok := idx.rolesByUserType[normalizeKey(userType)]
	return ok
}

// IsValidRoleForUserType reports whether the role is valid for the user
// type. Fails closed before initialization.
func (r *Registry) IsValidRoleForUserType(userType, role string) bool {
	idx := r.idx.Load()
	if idx == nil {
		return false
	}
	role = normalizeKey(role)
	for _, candidate := range idx.rolesByUserType[normalizeKey(userType)] {
		if candidate == role {
			return true
		}
	}
	return false
}

// HydrateUserTypes maps raw user type keys to display pairs. Unknown keys
// fall back to the raw key itself; hydration is best effort and never
// fails.
func (r *Registry) HydrateUserTypes(keys []string) []Hydrated {
	return r.hydrate(CategoryUserType, keys)
}

// HydrateRoles maps raw role keys to display pairs with the same fallback
// behavior as HydrateUserTypes.
func (r *Registry) HydrateRoles(keys []string) []Hydrated {
	return r.hydrate(CategoryRole, keys)
}

func (r *Registry) hydrate(category Category, keys []string) []Hydrated {
	idx := r.idx.Load()
	out := make([]Hydrated, 0, len(keys))
	for _, key := range keys {
		display := ""
		if idx != nil {
			display = idx.displayByID[lookupID(category, key)]
		}
		if display == "" {
			// Unknown keys pass through verbatim. Guessing a prettier form
			// would hide catalog gaps from whoever reads the output.
			display = key
		}
		out = append(out, Hydrated{Key: key, DisplayAs: display})
	}
	return out
}

func (r *Registry) build(ctx context.Context) (*indices, error) {
	values, err := r.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("lookup: load: %w", err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("lookup: no active lookup values loaded: %w", shared.ErrConfiguration)
	}

	idx := &indices{
		rolesByUserType: make(map[string][]string),
		displayByID:     make(map[string]string),
	}

	userTypeByID := make(map[string]string)
	for _, v := range values {
		if !v.IsActive {
			continue
		}
		idx.displayByID[lookupID(v.Category, v.Key)] = v.DisplayAs
		if v.Category == CategoryUserType {
			key := normalizeKey(v.Key)
			userTypeByID[v.LookupID] = key
			idx.userTypes = append(idx.userTypes, key)
			idx.rolesByUserType[key] = []string{}
		}
	}

	type rolePos struct {
		key  string
		sort int
		pos  int
	}
	rolesFor := make(map[string][]rolePos)
	for i, v := range values {
		if v.Category != CategoryRole || !v.IsActive {
			continue
		}
		parent, ok := userTypeByID[v.ParentLookupID]
		if !ok {
			// Orphaned role rows are silently excluded from role sets; the
			// display index above still hydrates them.
			r.logger.Debug("lookup: skipping orphaned role", slog.String("lookup_id", v.LookupID))
			continue
		}
		rolesFor[parent] = append(rolesFor[parent], rolePos{key: normalizeKey(v.Key), sort: v.SortOrder, pos: i})
	}
	for userType, roles := range rolesFor {
		sort.SliceStable(roles, func(a, b int) bool {
			if roles[a].sort != roles[b].sort {
				return roles[a].sort < roles[b].sort
			}
			return roles[a].pos < roles[b].pos
		})
		keys := make([]string, len(roles))
		for i, role := range roles {
			keys[i] = role.key
		}
		idx.rolesByUserType[userType] = keys
	}

	return idx, nil
}

func lookupID(category Category, key string) string {
	return string(category) + "." + normalizeKey(key)
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

