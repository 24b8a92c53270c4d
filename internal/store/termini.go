package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openbmc-go/pldmd/internal/store/models"
)

// UpsertTerminus records a terminus's addressing the first time it's seen,
// or refreshes name/last-seen on subsequent sightings (spec §4.3.1 probe).
func (s *GORMStore) UpsertTerminus(ctx context.Context, tid, eid uint8, name string) (*models.Terminus, error) {
	var existing models.Terminus
	err := s.db.WithContext(ctx).Where("tid = ?", tid).First(&existing).Error
	now := time.Now()

	if err == nil {
		existing.EID = eid
		existing.LastSeenAt = now
		if name != "" {
			existing.Name = name
		}
		if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	t := &models.Terminus{
		ID:          uuid.New().String(),
		TID:         tid,
		EID:         eid,
		Name:        name,
		Status:      models.TerminusStatusUnknown,
		FirstSeenAt: now,
		LastSeenAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// SetTerminusStatus updates the liveness and boot-progress state last
// observed for tid (spec §4.3.1 probe, §4.4.3 boot-progress gating).
func (s *GORMStore) SetTerminusStatus(ctx context.Context, tid uint8, status models.TerminusStatus, bootProgress string) error {
	result := s.db.WithContext(ctx).
		Model(&models.Terminus{}).
		Where("tid = ?", tid).
		Updates(map[string]any{
			"status":        string(status),
			"boot_progress": bootProgress,
			"last_seen_at":  time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrTerminusNotFound
	}
	return nil
}

// GetTerminus looks up a terminus by tid.
func (s *GORMStore) GetTerminus(ctx context.Context, tid uint8) (*models.Terminus, error) {
	var t models.Terminus
	if err := s.db.WithContext(ctx).Where("tid = ?", tid).First(&t).Error; err != nil {
		return nil, convertNotFoundError(err, models.ErrTerminusNotFound)
	}
	return &t, nil
}

// ListTermini returns every known terminus, for internal/controlapi's
// terminus-status listing (spec §6.5-6.7).
func (s *GORMStore) ListTermini(ctx context.Context) ([]*models.Terminus, error) {
	var termini []*models.Terminus
	if err := s.db.WithContext(ctx).Order("tid").Find(&termini).Error; err != nil {
		return nil, err
	}
	return termini, nil
}
