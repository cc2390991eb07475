package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atheneum-lms/atheneum/internal/shared"
)

func newTestRouter(t *testing.T) (*chi.Mux, *fakeDepartments) {
	t.Helper()
	svc, _, _, depts := newTestService(t)
	mw := Middleware{Service: svc, Logger: discardLogger()}

	r := chi.NewRouter()
	r.Use(mw.Authenticate)
	r.With(mw.RequireAny("catalog:course:view")).
		Get("/courses", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.With(mw.RequireAll("catalog:course:view", "admin:tenant:manage")).
		Get("/tenant", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.With(mw.RequireDepartment("departmentID")).
		Get("/departments/{departmentID}/roster", func(w http.ResponseWriter, r *http.Request) {
			info := MembershipFromContext(r.Context())
			require.NotNil(t, info)
			if info.IsCascaded {
				w.WriteHeader(http.StatusAccepted)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
	r.With(mw.RequireEscalation("platform_admin")).
		Delete("/admin/tenants", func(w http.ResponseWriter, r *http.Request) {
			require.NotNil(t, EscalationFromContext(r.Context()))
			w.WriteHeader(http.StatusOK)
		})
	return r, depts
}

func doRequest(r http.Handler, method, target string, asUser int64, escalationToken string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	sess := &shared.Session{}
	if asUser != 0 {
		sess.SetUser(asUser, "staff")
	}
	if escalationToken != "" {
		req.Header.Set(EscalationTokenHeader, escalationToken)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticateRejectsAnonymous(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doRequest(r, http.MethodGet, "/courses", 0, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRightsGuard(t *testing.T) {
	r, _ := newTestRouter(t)

	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/courses", 7, "").Code)
	// User 8 has no permissions at all.
	assert.Equal(t, http.StatusForbidden, doRequest(r, http.MethodGet, "/courses", 8, "").Code)

	// The all-mode route needs the escalated right too.
	assert.Equal(t, http.StatusForbidden, doRequest(r, http.MethodGet, "/tenant", 7, "").Code)
	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/tenant", 7, "tok-valid").Code)
}

func TestRequireDepartmentGuard(t *testing.T) {
	r, depts := newTestRouter(t)

	// Direct membership in 20, cascaded into 30, none toward 10.
	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/departments/20/roster", 7, "").Code)
	assert.Equal(t, http.StatusAccepted, doRequest(r, http.MethodGet, "/departments/30/roster", 7, "").Code)
	assert.Equal(t, http.StatusForbidden, doRequest(r, http.MethodGet, "/departments/10/roster", 7, "").Code)

	// Malformed and unknown ids never reach the handler.
	assert.Equal(t, http.StatusForbidden, doRequest(r, http.MethodGet, "/departments/abc/roster", 7, "").Code)
	assert.Equal(t, http.StatusForbidden, doRequest(r, http.MethodGet, "/departments/99/roster", 7, "").Code)

	depts.byID[30].RequireExplicitMembership = true
	assert.Equal(t, http.StatusForbidden, doRequest(r, http.MethodGet, "/departments/30/roster", 7, "").Code)
}

func TestRequireEscalationGuard(t *testing.T) {
	r, _ := newTestRouter(t)

	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodDelete, "/admin/tenants", 7, "tok-valid").Code)
	// Missing token is a 401, a bad one a 403.
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, http.MethodDelete, "/admin/tenants", 7, "").Code)
	assert.Equal(t, http.StatusForbidden, doRequest(r, http.MethodDelete, "/admin/tenants", 7, "tok-expired").Code)
}
