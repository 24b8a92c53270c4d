package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openbmc-go/pldmd/internal/store/models"
)

// TerminusStore is the slice of internal/store.Store that terminus handlers
// need.
type TerminusStore interface {
	GetTerminus(ctx context.Context, tid uint8) (*models.Terminus, error)
	ListTermini(ctx context.Context) ([]*models.Terminus, error)
}

// TerminusHandler serves the terminus-status listing (spec §4.3.1 probe,
// §6.5-6.7 control surface).
type TerminusHandler struct {
	store TerminusStore
}

func NewTerminusHandler(store TerminusStore) *TerminusHandler {
	return &TerminusHandler{store: store}
}

// List handles GET /api/v1/termini.
func (h *TerminusHandler) List(w http.ResponseWriter, r *http.Request) {
	termini, err := h.store.ListTermini(r.Context())
	if err != nil {
		InternalServerError(w, "failed to list termini")
		return
	}
	WriteJSONOK(w, termini)
}

// Get handles GET /api/v1/termini/{tid}.
func (h *TerminusHandler) Get(w http.ResponseWriter, r *http.Request) {
	tid, ok := parseTID(w, r)
	if !ok {
		return
	}
	term, err := h.store.GetTerminus(r.Context(), tid)
	if err != nil {
		handleStoreError(w, err)
		return
	}
	WriteJSONOK(w, term)
}

func parseTID(w http.ResponseWriter, r *http.Request) (uint8, bool) {
	raw := chi.URLParam(r, "tid")
	tid, err := parseUint8(raw)
	if err != nil {
		BadRequest(w, "tid must be an integer in [0, 255]")
		return 0, false
	}
	return tid, true
}
