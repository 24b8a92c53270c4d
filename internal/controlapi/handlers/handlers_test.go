package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/openbmc-go/pldmd/internal/store/models"
)

// fakeStore is an in-memory stand-in for *internal/store.GORMStore,
// satisfying the handler-local store interfaces without a real database.
type fakeStore struct {
	mu sync.Mutex

	users map[string]*models.User

	termini map[uint8]*models.Terminus

	audit map[uint16][]*models.EffecterAuditEntry

	healthErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[string]*models.User),
		termini: make(map[uint8]*models.Terminus),
		audit:   make(map[uint16][]*models.EffecterAuditEntry),
	}
}

func (f *fakeStore) GetUser(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeStore) ValidateCredentials(_ context.Context, username, password string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return nil, models.ErrInvalidCredentials
	}
	if !u.Enabled {
		return nil, models.ErrUserDisabled
	}
	if u.PasswordHash != password {
		return nil, models.ErrInvalidCredentials
	}
	return u, nil
}

func (f *fakeStore) UpdateLastLogin(_ context.Context, username string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[username]; !ok {
		return models.ErrUserNotFound
	}
	return nil
}

func (f *fakeStore) GetTerminus(_ context.Context, tid uint8) (*models.Terminus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.termini[tid]
	if !ok {
		return nil, models.ErrTerminusNotFound
	}
	return t, nil
}

func (f *fakeStore) ListTermini(_ context.Context) ([]*models.Terminus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Terminus, 0, len(f.termini))
	for _, t := range f.termini {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeStore) ListEffecterAudit(_ context.Context, effecterID uint16, _ int) ([]*models.EffecterAuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audit[effecterID], nil
}

func (f *fakeStore) Healthcheck(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthErr
}
