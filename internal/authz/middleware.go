package authz

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atheneum-lms/atheneum/internal/platform/httpx"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

// EscalationTokenHeader carries the admin escalation token. It is separate
// from the session cookie: escalation rides on top of normal
// authentication, it does not replace it.
const EscalationTokenHeader = "X-Escalation-Token"

type membershipContextKey struct{}

type escalationContextKey struct{}

// MembershipFromContext returns the membership info stored by
// RequireDepartment, if the request passed that guard.
func MembershipFromContext(ctx context.Context) *MembershipInfo {
	info, _ := ctx.Value(membershipContextKey{}).(*MembershipInfo)
	return info
}

// EscalationFromContext returns the escalation info stored by
// RequireEscalation.
func EscalationFromContext(ctx context.Context) *EscalationInfo {
	info, _ := ctx.Value(escalationContextKey{}).(*EscalationInfo)
	return info
}

// Middleware wires the enforcement guards for HTTP handlers. Guards compose:
// a route stacks Authenticate, then optionally RequireDepartment and/or
// RequireEscalation, then a rights guard. The first failing guard
// short-circuits with a uniform 401/403; no later guard runs.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Authenticate resolves the session into an identity and stores it in
// context. Requests without an established user stop here with 401.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		identity := sess.Identity()
		if !identity.Authenticated {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
			return
		}
		identity.EscalationToken = r.Header.Get(EscalationTokenHeader)
		ctx := shared.ContextWithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRights ensures the identity holds the listed rights under the given
// mode. An empty list imposes nothing.
func (m Middleware) RequireRights(mode Mode, required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			identity := shared.IdentityFromContext(r.Context())
			if !identity.Authenticated {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
				return
			}
			if !m.Service.CheckAccessRight(r.Context(), identity, required, mode) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny is shorthand for RequireRights with ModeAny.
func (m Middleware) RequireAny(required ...string) func(http.Handler) http.Handler {
	return m.RequireRights(ModeAny, required...)
}

// RequireAll is shorthand for RequireRights with ModeAll.
func (m Middleware) RequireAll(required ...string) func(http.Handler) http.Handler {
	return m.RequireRights(ModeAll, required...)
}

// RequireDepartment extracts a department id from the named URL parameter
// and confirms membership, direct or cascaded. The membership info is stored
// in context for the handler.
func (m Middleware) RequireDepartment(urlParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := shared.IdentityFromContext(r.Context())
			if !identity.Authenticated {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
				return
			}
			departmentID, err := strconv.ParseInt(chi.URLParam(r, urlParam), 10, 64)
			if err != nil || departmentID <= 0 {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
				return
			}
			info, err := m.Service.CheckDepartmentMembership(r.Context(), identity, departmentID)
			if err != nil {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
				return
			}
			ctx := context.WithValue(r.Context(), membershipContextKey{}, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireEscalation ensures a valid escalation token accompanies the
// request, optionally holding one of the listed admin roles. A missing token
// is 401 (there is nothing to judge); an invalid, expired or insufficient
// one is 403.
func (m Middleware) RequireEscalation(requiredRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := shared.IdentityFromContext(r.Context())
			if !identity.Authenticated {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
				return
			}
			if identity.EscalationToken == "" {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
				return
			}
			info, err := m.Service.CheckEscalation(r.Context(), identity.EscalationToken)
			if err != nil {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
				return
			}
			if len(requiredRoles) > 0 && !m.Service.CheckAdminRole(r.Context(), identity, requiredRoles) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
				return
			}
			ctx := context.WithValue(r.Context(), escalationContextKey{}, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
