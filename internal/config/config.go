// Package config loads pldmd's static configuration: MCTP transport and
// timeouts, the PDR repository, the effecter-mapping file, the control API,
// the terminus/effecter configuration store, metrics, logging and telemetry.
//
// Configuration sources, highest precedence first:
//  1. CLI flags (bound by cmd/pldmd, not this package)
//  2. Environment variables (PLDMD_*)
//  3. Configuration file (YAML)
//  4. Default values
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/openbmc-go/pldmd/internal/bytesize"
	"github.com/openbmc-go/pldmd/internal/logger"
)

// Config is the top-level pldmd configuration.
type Config struct {
	// Logging controls structured log output.
	Logging logger.Config `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry tracing export.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout bounds graceful shutdown of the metrics server. The
	// control API server uses its own fixed shutdown bound.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// MCTP configures the datagram transport and PLDM request/response
	// timeouts (spec §4.2).
	MCTP MCTPConfig `mapstructure:"mctp" yaml:"mctp"`

	// Repository bounds the in-memory PDR repository.
	Repository RepositoryConfig `mapstructure:"repository" yaml:"repository"`

	// Effecter names the JSON effecter-mapping file consulted by
	// findStateEffecterId and the effecter write pipeline (spec §4.4.1).
	Effecter EffecterMappingConfig `mapstructure:"effecter" yaml:"effecter"`

	// ControlAPI configures the REST control surface.
	ControlAPI ControlAPIConfig `mapstructure:"controlapi" yaml:"controlapi"`

	// Database configures the terminus/effecter configuration store
	// (SQLite or PostgreSQL).
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// OEM configures vendor-specific PLDM extensions (spec's SUPPLEMENTED
	// FEATURES).
	OEM OEMConfig `mapstructure:"oem" yaml:"oem"`

	// SoftOff configures the host soft-power-off trigger (spec §4.3.4
	// enrichment).
	SoftOff SoftOffConfig `mapstructure:"softoff" yaml:"softoff"`
}

// OEMConfig groups vendor-specific PLDM extensions.
type OEMConfig struct {
	IBM IBMOEMConfig `mapstructure:"ibm" yaml:"ibm"`
}

// IBMOEMConfig configures the IBM OEM file-transfer handler
// (internal/oem/ibm) and its S3-compatible blob store.
type IBMOEMConfig struct {
	// Enabled registers the IBM OEM file-transfer commands with the
	// responder dispatcher. Disabled by default since it requires a
	// reachable S3-compatible endpoint.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Bucket is the S3 bucket holding transferred dump/PEL/cert/LID files.
	Bucket string `mapstructure:"bucket" yaml:"bucket"`

	// KeyPrefix optionally namespaces every object key in Bucket.
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`

	// Region is the AWS region (or S3-compatible equivalent) to target.
	Region string `mapstructure:"region" yaml:"region"`

	// Endpoint overrides the default AWS endpoint, for S3-compatible
	// object stores (e.g. a BMC-local MinIO instance).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ForcePathStyle selects path-style addressing, required by most
	// S3-compatible (non-AWS) endpoints.
	ForcePathStyle bool `mapstructure:"force_path_style" yaml:"force_path_style"`

	// AccessKeyID/SecretAccessKey are static credentials for the
	// S3-compatible endpoint. Left empty, the AWS SDK's default credential
	// chain (environment, shared config, instance role) applies instead.
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
}

// SoftOffConfig configures internal/hostsync's soft-power-off trigger.
type SoftOffConfig struct {
	// Enabled drives the effecter write requesting the host begin a
	// graceful power-off before host-off teardown (spec §4.3.4).
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// EffecterID is the state effecter the soft-off request is written to.
	EffecterID uint16 `mapstructure:"effecter_id" yaml:"effecter_id"`

	// State is the effecter state value requesting soft-off.
	State uint8 `mapstructure:"state" yaml:"state"`

	// CompletionSensorID is the state sensor whose transition reports the
	// host finished soft-off, bound into the event.Handler action table to
	// call SoftOffTrigger.Complete. Zero leaves Wait bounded by Timeout
	// alone.
	CompletionSensorID uint16 `mapstructure:"completion_sensor_id" yaml:"completion_sensor_id"`

	// Timeout bounds how long Teardown waits for the host to report
	// completion before proceeding unconditionally.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// TelemetryConfig mirrors internal/telemetry.Config with mapstructure/yaml
// tags, since telemetry.Config itself is shared with other callers that
// don't want config-file tags on it.
type TelemetryConfig struct {
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
	ServiceName    string  `mapstructure:"service_name" yaml:"service_name"`
	ServiceVersion string  `mapstructure:"service_version" yaml:"service_version"`
	Endpoint       string  `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure       bool    `mapstructure:"insecure" yaml:"insecure"`
	SampleRate     float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1" yaml:"sample_rate"`
}

// MCTPConfig configures the local MCTP datagram socket and per-command-class
// timeouts (spec §4.2 "Timeouts").
type MCTPConfig struct {
	// SocketPath is the MCTP datagram socket pldmd binds/connects to.
	SocketPath string `mapstructure:"socket_path" validate:"required" yaml:"socket_path"`

	// HostEID is the MCTP endpoint id of the managed host this daemon
	// synchronizes against (spec §4.3's single-host terminus).
	HostEID uint8 `mapstructure:"host_eid" validate:"required" yaml:"host_eid"`

	// LocalTID is this daemon's own terminus id, reported by GetTID (spec
	// §6.3 base discovery).
	LocalTID uint8 `mapstructure:"local_tid" validate:"required" yaml:"local_tid"`

	// DefaultTimeout is the configured bound for an ordinary request/response
	// round trip. This field and the two timeouts below are validated and
	// defaulted but not read by internal/mctp, whose engine applies its own
	// fixed per-command values (mctp.TimeoutFor).
	DefaultTimeout time.Duration `mapstructure:"default_timeout" validate:"required,gt=0" yaml:"default_timeout"`

	// FirmwareDataTimeout is the configured bound for a multipart firmware-update transfer
	// command (UA_T2).
	FirmwareDataTimeout time.Duration `mapstructure:"firmware_data_timeout" validate:"required,gt=0" yaml:"firmware_data_timeout"`

	// StateChangeTimeout is the configured bound for a command whose completion depends on a
	// host-side state transition (UA_T3).
	StateChangeTimeout time.Duration `mapstructure:"state_change_timeout" validate:"required,gt=0" yaml:"state_change_timeout"`

	// PersistInstanceIDs mirrors the instance-id reservation table to an
	// on-disk badger store at InstanceIDStorePath, so a restart does not
	// hand out ids the host may still correlate with a pre-restart request
	// (crash-recovery enrichment, not required for correctness).
	PersistInstanceIDs bool `mapstructure:"persist_instance_ids" yaml:"persist_instance_ids"`

	// InstanceIDStorePath is the badger directory backing PersistInstanceIDs.
	InstanceIDStorePath string `mapstructure:"instance_id_store_path" yaml:"instance_id_store_path"`
}

// RepositoryConfig bounds the in-memory PDR repository.
type RepositoryConfig struct {
	// MaxTotalBytes caps the sum of every record's body length (zero means
	// unbounded). Exceeding it fails the add that would have crossed it.
	MaxTotalBytes bytesize.ByteSize `mapstructure:"max_total_bytes" yaml:"max_total_bytes"`
}

// EffecterMappingConfig names the JSON file describing configured effecters
// (spec §4.4.1), distinct from internal/effecter.EffecterConfig which is the
// decoded shape of one entry in that file.
type EffecterMappingConfig struct {
	// Path is the JSON effecter-mapping file's location on disk.
	Path string `mapstructure:"path" validate:"required" yaml:"path"`
}

// ControlAPIConfig configures the REST control surface standing in for
// the D-Bus interfaces the spec treats as external (spec §4.4, §6.7).
type ControlAPIConfig struct {
	ListenAddress string        `mapstructure:"listen_address" validate:"required" yaml:"listen_address"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	JWTSecret     string        `mapstructure:"jwt_secret" validate:"required,min=16" yaml:"jwt_secret"`
	TokenDuration time.Duration `mapstructure:"token_duration" validate:"required,gt=0" yaml:"token_duration"`
}

// DatabaseType selects the backing store for DatabaseConfig.
type DatabaseType string

const (
	DatabaseTypeSQLite   DatabaseType = "sqlite"
	DatabaseTypePostgres DatabaseType = "postgres"
)

// DatabaseConfig configures the terminus/effecter configuration store.
type DatabaseConfig struct {
	Type     DatabaseType   `mapstructure:"type" validate:"required,oneof=sqlite postgres" yaml:"type"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// SQLiteConfig is the SQLite-backed DatabaseConfig variant.
type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// PostgresConfig is the PostgreSQL-backed DatabaseConfig variant.
type PostgresConfig struct {
	Host         string `mapstructure:"host" yaml:"host"`
	Port         int    `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
	Database     string `mapstructure:"database" yaml:"database"`
	User         string `mapstructure:"user" yaml:"user"`
	Password     string `mapstructure:"password" yaml:"password"`
	SSLMode      string `mapstructure:"ssl_mode" yaml:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"omitempty,gt=0" yaml:"max_open_conns"`
}

// DSN renders a libpq-style connection string for PostgresConfig.
func (c *PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)
	if c.SSLMode != "" {
		dsn += fmt.Sprintf(" sslmode=%s", c.SSLMode)
	}
	return dsn
}

// MetricsConfig configures the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Address string `mapstructure:"address" validate:"omitempty" yaml:"address"`
}

// Load loads configuration from file, environment and defaults, in that
// increasing order of precedence, then applies defaults to anything left
// unset and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return &cfg, nil
}

// MustLoad loads configuration, returning a user-facing error with
// remediation instructions if configPath (or the default location) does not
// exist.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"create one there, or point at an explicit file:\n"+
				"  pldmd --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", configPath, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as YAML with owner-only permissions, since
// Database.Postgres.Password and ControlAPI.JWTSecret may live in it.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("PLDMD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read config file: %w", err)
	}
	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pldmd")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "pldmd")
}

// GetDefaultConfigPath returns the default config.yaml location.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default
// location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the directory config.yaml is searched for by default.
func GetConfigDir() string {
	return getConfigDir()
}
