package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/openbmc-go/pldmd/internal/store/models"
)

// RecordEffecterWrite appends one audit entry for a numeric-effecter write
// attempt (spec §4.4.4), mirroring the outcome labels
// internal/metrics.Recorder.RecordEffecterWrite also reports.
func (s *GORMStore) RecordEffecterWrite(ctx context.Context, eid uint8, effecterID uint16, outcome, detail string) error {
	entry := &models.EffecterAuditEntry{
		ID:         uuid.New().String(),
		EID:        eid,
		EffecterID: effecterID,
		Outcome:    outcome,
		Detail:     detail,
	}
	return s.db.WithContext(ctx).Create(entry).Error
}

// ListEffecterAudit returns the most recent audit entries for effecterID,
// newest first, bounded by limit (0 means unbounded).
func (s *GORMStore) ListEffecterAudit(ctx context.Context, effecterID uint16, limit int) ([]*models.EffecterAuditEntry, error) {
	q := s.db.WithContext(ctx).Where("effecter_id = ?", effecterID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var entries []*models.EffecterAuditEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
