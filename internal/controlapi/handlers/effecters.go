package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openbmc-go/pldmd/internal/effecter"
	"github.com/openbmc-go/pldmd/internal/store/models"
)

// EffecterAuditStore is the slice of internal/store.Store the effecter
// handler needs for the write audit trail (spec §4.4.4).
type EffecterAuditStore interface {
	ListEffecterAudit(ctx context.Context, effecterID uint16, limit int) ([]*models.EffecterAuditEntry, error)
}

// EffecterHandler exposes the numeric-effecter power-cap setter over REST,
// standing in for the D-Bus Control.Power.Cap property write the spec treats
// as external (spec §4.4.4, §6.7).
type EffecterHandler struct {
	writer *effecter.Writer
	reg    *effecter.Registry
	audit  EffecterAuditStore
}

func NewEffecterHandler(writer *effecter.Writer, reg *effecter.Registry, audit EffecterAuditStore) *EffecterHandler {
	return &EffecterHandler{writer: writer, reg: reg, audit: audit}
}

type setPowerCapRequest struct {
	EID   uint8   `json:"eid"`
	Watts float64 `json:"watts"`
}

// SetPowerCap handles PUT /api/v1/effecters/{id}/power-cap.
func (h *EffecterHandler) SetPowerCap(w http.ResponseWriter, r *http.Request) {
	effecterID, ok := parseEffecterID(w, r)
	if !ok {
		return
	}
	var req setPowerCapRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	info, ok := h.reg.Effecter(effecterID)
	if !ok {
		NotFound(w, fmt.Sprintf("effecter %d is not registered", effecterID))
		return
	}

	if err := h.writer.WritePowerCap(r.Context(), req.EID, info, req.Watts); err != nil {
		BadRequest(w, err.Error())
		return
	}
	WriteJSONOK(w, map[string]any{"effecter_id": effecterID, "watts": req.Watts})
}

// ListAudit handles GET /api/v1/effecters/{id}/audit.
func (h *EffecterHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	effecterID, ok := parseEffecterID(w, r)
	if !ok {
		return
	}
	entries, err := h.audit.ListEffecterAudit(r.Context(), effecterID, 100)
	if err != nil {
		InternalServerError(w, "failed to list audit entries")
		return
	}
	WriteJSONOK(w, entries)
}

func parseEffecterID(w http.ResponseWriter, r *http.Request) (uint16, bool) {
	raw := chi.URLParam(r, "id")
	var id uint16
	if _, err := fmt.Sscanf(raw, "%d", &id); err != nil {
		BadRequest(w, "id must be an integer effecter id")
		return 0, false
	}
	return id, true
}
