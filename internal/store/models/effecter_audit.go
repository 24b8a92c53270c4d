package models

import "time"

// EffecterAuditEntry records one numeric-effecter write attempt for the
// control-plane audit trail (spec §4.4.4 power-cap writes), mirroring the
// outcome labels internal/metrics.Recorder.RecordEffecterWrite reports.
type EffecterAuditEntry struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	EID        uint8     `gorm:"not null;index" json:"eid"`
	EffecterID uint16    `gorm:"not null;index" json:"effecter_id"`
	Outcome    string    `gorm:"not null;size:32" json:"outcome"`
	Detail     string    `gorm:"size:255" json:"detail,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName returns the table name for EffecterAuditEntry.
func (EffecterAuditEntry) TableName() string { return "effecter_audit_entries" }
