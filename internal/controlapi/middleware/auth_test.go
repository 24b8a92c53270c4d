package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbmc-go/pldmd/internal/controlapi/auth"
	"github.com/openbmc-go/pldmd/internal/store/models"
)

func testService(t *testing.T) *auth.Service {
	t.Helper()
	svc, err := auth.NewService(auth.Config{Secret: "a-sufficiently-long-test-secret"})
	require.NoError(t, err)
	return svc
}

func TestJWTAuthRejectsMissingHeader(t *testing.T) {
	svc := testService(t)
	handler := JWTAuth(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestJWTAuthRejectsInvalidToken(t *testing.T) {
	svc := testService(t)
	handler := JWTAuth(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	svc := testService(t)
	token, _, err := svc.IssueToken(&models.User{Username: "viewer", Role: "viewer"})
	require.NoError(t, err)

	var captured *auth.Claims
	handler := JWTAuth(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "viewer", captured.Username)
}

func TestRequireAdminRejectsNonAdmin(t *testing.T) {
	svc := testService(t)
	token, _, err := svc.IssueToken(&models.User{Username: "viewer", Role: "viewer"})
	require.NoError(t, err)

	handler := JWTAuth(svc)(RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRequireAdminAcceptsAdmin(t *testing.T) {
	svc := testService(t)
	token, _, err := svc.IssueToken(&models.User{Username: "admin", Role: "admin"})
	require.NoError(t, err)

	called := false
	handler := JWTAuth(svc)(RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, called)
}

func TestOptionalJWTAuthDoesNotRejectMissingToken(t *testing.T) {
	svc := testService(t)
	var captured *auth.Claims
	handler := OptionalJWTAuth(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, captured)
}
