package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func viewerActor() Actor {
	return Actor{Grants: NewGrants(IdentitySnapshot{
		UserID:          7,
		Active:          true,
		RoleName:        "Committee Viewer",
		RolePermissions: []Permission{{ID: 1, Resource: "committee", Action: "view"}},
	})}
}

func TestRequireAnyAllowsMatchingActor(t *testing.T) {
	m := Middleware{}
	next, called := okHandler()
	guard := m.RequireAny("committee+view", "committee+edit")(next)

	req := httptest.NewRequest(http.MethodGet, "/committees", nil)
	req = req.WithContext(ContextWithActor(req.Context(), viewerActor()))
	res := httptest.NewRecorder()
	guard.ServeHTTP(res, req)

	assert.True(t, *called)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestRequireAnyDeniesMissingPermission(t *testing.T) {
	m := Middleware{}
	next, called := okHandler()
	guard := m.RequireAny("committee+delete")(next)

	req := httptest.NewRequest(http.MethodGet, "/committees", nil)
	req = req.WithContext(ContextWithActor(req.Context(), viewerActor()))
	res := httptest.NewRecorder()
	guard.ServeHTTP(res, req)

	assert.False(t, *called)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestRequireAnyRedirectsUnauthenticated(t *testing.T) {
	m := Middleware{}
	next, called := okHandler()
	guard := m.RequireAny("committee+view")(next)

	req := httptest.NewRequest(http.MethodGet, "/committees", nil)
	res := httptest.NewRecorder()
	guard.ServeHTTP(res, req)

	assert.False(t, *called)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/auth/login", res.Header().Get("Location"))
}

func TestRequireAnyJSONGetsProblemPayload(t *testing.T) {
	m := Middleware{}
	next, _ := okHandler()
	guard := m.RequireAny("committee+delete")(next)

	req := httptest.NewRequest(http.MethodPost, "/committees", nil)
	req.Header.Set("Accept", "application/json")
	req = req.WithContext(ContextWithActor(req.Context(), viewerActor()))
	res := httptest.NewRecorder()
	guard.ServeHTTP(res, req)

	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Contains(t, res.Header().Get("Content-Type"), "application/json")
}

func TestRequireAnyFormPostRedirectsBack(t *testing.T) {
	m := Middleware{}
	next, called := okHandler()
	guard := m.RequireAny("committee+delete")(next)

	req := httptest.NewRequest(http.MethodPost, "/committees/1/delete", nil)
	req.Header.Set("Referer", "/committees/1")
	req = req.WithContext(ContextWithActor(req.Context(), viewerActor()))
	res := httptest.NewRecorder()
	guard.ServeHTTP(res, req)

	assert.False(t, *called)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/committees/1", res.Header().Get("Location"))
}

func TestRequireAnyAllMalformedDeniesEverything(t *testing.T) {
	m := Middleware{}
	next, called := okHandler()
	guard := m.RequireAny("notapair")(next)

	req := httptest.NewRequest(http.MethodGet, "/committees", nil)
	req = req.WithContext(ContextWithActor(req.Context(), viewerActor()))
	res := httptest.NewRecorder()
	guard.ServeHTTP(res, req)

	assert.False(t, *called)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestRequireAdmin(t *testing.T) {
	m := Middleware{}
	next, called := okHandler()
	guard := m.RequireAdmin()(next)

	admin := Actor{Grants: NewGrants(IdentitySnapshot{UserID: 1, Active: true, RoleName: "ADMIN"})}
	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req = req.WithContext(ContextWithActor(req.Context(), admin))
	res := httptest.NewRecorder()
	guard.ServeHTTP(res, req)
	assert.True(t, *called)

	*called = false
	req = httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req = req.WithContext(ContextWithActor(req.Context(), viewerActor()))
	res = httptest.NewRecorder()
	guard.ServeHTTP(res, req)
	assert.False(t, *called)
	assert.Equal(t, http.StatusForbidden, res.Code)
}
