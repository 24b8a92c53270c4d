package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLivenessAlwaysOK(t *testing.T) {
	store := newFakeStore()
	store.healthErr = errors.New("db is down")
	h := NewHealthHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	h.Liveness(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestReadinessReportsHealthy(t *testing.T) {
	store := newFakeStore()
	h := NewHealthHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rr := httptest.NewRecorder()
	h.Readiness(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadinessReportsUnhealthy(t *testing.T) {
	store := newFakeStore()
	store.healthErr = errors.New("db is down")
	h := NewHealthHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rr := httptest.NewRecorder()
	h.Readiness(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
