package models

import "time"

// TerminusStatus mirrors the liveness a Synchronizer.Probe call observes.
type TerminusStatus string

const (
	TerminusStatusUp      TerminusStatus = "up"
	TerminusStatusDown    TerminusStatus = "down"
	TerminusStatusUnknown TerminusStatus = "unknown"
)

// Terminus is a durable record of one MCTP terminus this daemon has talked
// to: its addressing (TID/EID), a human label, and the liveness/boot-progress
// state last observed by internal/hostsync.Synchronizer. internal/controlapi
// serves this table as the terminus-status listing (spec §6.5-6.7).
type Terminus struct {
	ID           string         `gorm:"primaryKey;size:36" json:"id"`
	TID          uint8          `gorm:"uniqueIndex;not null" json:"tid"`
	EID          uint8          `gorm:"not null" json:"eid"`
	Name         string         `gorm:"size:255" json:"name,omitempty"`
	Status       TerminusStatus `gorm:"size:16;default:unknown" json:"status"`
	BootProgress string         `gorm:"size:64" json:"boot_progress,omitempty"`
	FirstSeenAt  time.Time      `gorm:"autoCreateTime" json:"first_seen_at"`
	LastSeenAt   time.Time      `json:"last_seen_at"`
}

// TableName returns the table name for Terminus.
func (Terminus) TableName() string { return "termini" }
