package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsOverMinimalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
mctp:
  socket_path: /run/mctp/pldm.sock
controlapi:
  jwt_secret: "test-secret-key-minimum-16-chars"
database:
  type: sqlite
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 2*time.Second, cfg.MCTP.DefaultTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.NotEmpty(t, cfg.Database.SQLite.Path)
}

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, err := Load(filepath.Join(dir, "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
mctp:
  socket_path: /run/mctp/pldm.sock
controlapi:
  jwt_secret: "short"
database:
  type: sqlite
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
logging:
  level: INFO
mctp:
  socket_path: /run/mctp/pldm.sock
controlapi:
  jwt_secret: "test-secret-key-minimum-16-chars"
database:
  type: sqlite
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("PLDMD_LOGGING_LEVEL", "DEBUG")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestSaveConfigRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Logging.Level = "WARN"
	cfg.ControlAPI.JWTSecret = "a-secret-at-least-16-bytes-long"
	require.NoError(t, SaveConfig(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "WARN", loaded.Logging.Level)
}

func TestMustLoadErrorsWhenMissing(t *testing.T) {
	_, err := MustLoad(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGetDefaultConfigPathUsesXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	assert.Equal(t, filepath.Join(dir, "pldmd", "config.yaml"), GetDefaultConfigPath())
}

func TestByteSizeDecodeHookParsesHumanReadableSizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
mctp:
  socket_path: /run/mctp/pldm.sock
controlapi:
  jwt_secret: "test-secret-key-minimum-16-chars"
database:
  type: sqlite
repository:
  max_total_bytes: 1Mi
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.EqualValues(t, 1024*1024, cfg.Repository.MaxTotalBytes)
}
