//go:build integration

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/openbmc-go/pldmd/internal/config"
	"github.com/openbmc-go/pldmd/internal/store/models"
)

func bcryptHash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(h), err
}

func newTestStore(t *testing.T) *GORMStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pldmd.db")
	s, err := New(&config.DatabaseConfig{
		Type:   config.DatabaseTypeSQLite,
		SQLite: config.SQLiteConfig{Path: path},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewRejectsUnsupportedDatabaseType(t *testing.T) {
	_, err := New(&config.DatabaseConfig{Type: "mongo"})
	assert.Error(t, err)
}

func TestUpsertTerminusThenSetStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	term, err := s.UpsertTerminus(ctx, 9, 9, "host-0")
	require.NoError(t, err)
	assert.Equal(t, models.TerminusStatusUnknown, term.Status)

	require.NoError(t, s.SetTerminusStatus(ctx, 9, models.TerminusStatusUp, "OSRunning"))

	got, err := s.GetTerminus(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, models.TerminusStatusUp, got.Status)
	assert.Equal(t, "OSRunning", got.BootProgress)

	// a second upsert refreshes the row rather than duplicating it.
	_, err = s.UpsertTerminus(ctx, 9, 9, "")
	require.NoError(t, err)
	all, err := s.ListTermini(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSetTerminusStatusUnknownTIDFails(t *testing.T) {
	s := newTestStore(t)
	err := s.SetTerminusStatus(context.Background(), 42, models.TerminusStatusDown, "")
	assert.ErrorIs(t, err, models.ErrTerminusNotFound)
}

func TestEffecterAuditOrdersNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordEffecterWrite(ctx, 9, 4, "validation_failed", "out of range"))
	require.NoError(t, s.RecordEffecterWrite(ctx, 9, 4, "success", ""))

	entries, err := s.ListEffecterAudit(ctx, 4, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "success", entries[0].Outcome)
}

func TestCreateUserThenValidateCredentials(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hash, err := bcryptHash("hunter22")
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, &models.User{Username: "admin", PasswordHash: hash, Role: string(models.RoleAdmin)})
	require.NoError(t, err)

	user, err := s.ValidateCredentials(ctx, "admin", "hunter22")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())

	_, err = s.ValidateCredentials(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hash, err := bcryptHash("p@ssw0rd1")
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, &models.User{Username: "viewer", PasswordHash: hash})
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, &models.User{Username: "viewer", PasswordHash: hash})
	assert.ErrorIs(t, err, models.ErrDuplicateUser)
}
