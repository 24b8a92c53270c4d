package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbmc-go/pldmd/internal/store/models"
)

func TestTerminusListReturnsAll(t *testing.T) {
	store := newFakeStore()
	store.termini[1] = &models.Terminus{ID: "t1", TID: 1, EID: 9, Status: models.TerminusStatusUp}
	h := NewTerminusHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/termini", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestTerminusGetNotFound(t *testing.T) {
	store := newFakeStore()
	h := NewTerminusHandler(store)

	r := chi.NewRouter()
	r.Get("/termini/{tid}", h.Get)

	req := httptest.NewRequest(http.MethodGet, "/termini/7", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTerminusGetReturnsRecord(t *testing.T) {
	store := newFakeStore()
	store.termini[7] = &models.Terminus{ID: "t7", TID: 7, EID: 9, Status: models.TerminusStatusUp}
	h := NewTerminusHandler(store)

	r := chi.NewRouter()
	r.Get("/termini/{tid}", h.Get)

	req := httptest.NewRequest(http.MethodGet, "/termini/7", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
}

func TestTerminusGetRejectsNonNumericTID(t *testing.T) {
	store := newFakeStore()
	h := NewTerminusHandler(store)

	r := chi.NewRouter()
	r.Get("/termini/{tid}", h.Get)

	req := httptest.NewRequest(http.MethodGet, "/termini/not-a-number", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
