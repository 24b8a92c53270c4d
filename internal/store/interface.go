package store

import (
	"context"
	"time"

	"github.com/openbmc-go/pldmd/internal/store/models"
)

// Store is the persistence surface internal/controlapi and
// internal/hostsync depend on: known termini, the effecter-write audit
// trail, and control-plane API accounts.
type Store interface {
	UpsertTerminus(ctx context.Context, tid, eid uint8, name string) (*models.Terminus, error)
	SetTerminusStatus(ctx context.Context, tid uint8, status models.TerminusStatus, bootProgress string) error
	GetTerminus(ctx context.Context, tid uint8) (*models.Terminus, error)
	ListTermini(ctx context.Context) ([]*models.Terminus, error)

	RecordEffecterWrite(ctx context.Context, eid uint8, effecterID uint16, outcome, detail string) error
	ListEffecterAudit(ctx context.Context, effecterID uint16, limit int) ([]*models.EffecterAuditEntry, error)

	GetUser(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (string, error)
	UpdateLastLogin(ctx context.Context, username string, when time.Time) error
	ValidateCredentials(ctx context.Context, username, password string) (*models.User, error)

	Healthcheck(ctx context.Context) error
	Close() error
}
