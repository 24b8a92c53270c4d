package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetDefaultConfigIsSelfConsistent(t *testing.T) {
	cfg := GetDefaultConfig()

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)

	assert.Equal(t, "pldmd", cfg.Telemetry.ServiceName)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRate)

	assert.Equal(t, 2*time.Second, cfg.MCTP.DefaultTimeout)
	assert.Equal(t, 90*time.Second, cfg.MCTP.FirmwareDataTimeout)
	assert.Equal(t, 1800*time.Second, cfg.MCTP.StateChangeTimeout)
	assert.NotEmpty(t, cfg.MCTP.SocketPath)

	assert.Equal(t, DatabaseTypeSQLite, cfg.Database.Type)
	assert.NotEmpty(t, cfg.Database.SQLite.Path)

	assert.NotEmpty(t, cfg.ControlAPI.ListenAddress)
	assert.Equal(t, time.Hour, cfg.ControlAPI.TokenDuration)

	assert.NotEmpty(t, cfg.Metrics.Address)
	assert.NotEmpty(t, cfg.Effecter.Path)
}

func TestApplyDatabaseDefaultsSetsPostgresDefaultsOnlyForPostgres(t *testing.T) {
	cfg := DatabaseConfig{Type: DatabaseTypePostgres}
	applyDatabaseDefaults(&cfg)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
	assert.Equal(t, 10, cfg.Postgres.MaxOpenConns)
	assert.Empty(t, cfg.SQLite.Path, "sqlite path is not defaulted for a postgres-typed config")
}

func TestApplyDefaultsDoesNotOverwriteExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Logging.Level = "DEBUG"
	cfg.MCTP.DefaultTimeout = 5 * time.Second

	ApplyDefaults(cfg)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, 5*time.Second, cfg.MCTP.DefaultTimeout)
}
