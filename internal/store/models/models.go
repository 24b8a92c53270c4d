// Package models defines the GORM row types persisted by internal/store:
// known termini, effecter-write audit entries, and the control-plane users
// that authenticate against internal/controlapi.
package models

// AllModels returns every GORM model this package defines. internal/store
// creates the schema from internal/store/migrations, not by passing these
// models to GORM's AutoMigrate.
func AllModels() []any {
	return []any{
		&Terminus{},
		&EffecterAuditEntry{},
		&User{},
	}
}
