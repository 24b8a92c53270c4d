package config

import (
	"time"

	"github.com/openbmc-go/pldmd/internal/logger"
)

// ApplyDefaults fills in zero-valued fields of cfg with documented defaults.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMCTPDefaults(&cfg.MCTP)
	applyEffecterDefaults(&cfg.Effecter)
	applyControlAPIDefaults(&cfg.ControlAPI)
	applyDatabaseDefaults(&cfg.Database)
	applyMetricsDefaults(&cfg.Metrics)
	applySoftOffDefaults(&cfg.SoftOff)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
}

func applyLoggingDefaults(cfg *logger.Config) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "pldmd"
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = "dev"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

func applyMCTPDefaults(cfg *MCTPConfig) {
	if cfg.SocketPath == "" {
		cfg.SocketPath = "/run/mctp/pldm.sock"
	}
	if cfg.HostEID == 0 {
		cfg.HostEID = 9
	}
	if cfg.LocalTID == 0 {
		cfg.LocalTID = 1
	}
	if cfg.DefaultTimeout == 0 {
		cfg.DefaultTimeout = 2 * time.Second
	}
	if cfg.FirmwareDataTimeout == 0 {
		cfg.FirmwareDataTimeout = 90 * time.Second
	}
	if cfg.StateChangeTimeout == 0 {
		cfg.StateChangeTimeout = 1800 * time.Second
	}
	if cfg.PersistInstanceIDs && cfg.InstanceIDStorePath == "" {
		cfg.InstanceIDStorePath = getConfigDir() + "/instanceid"
	}
}

func applySoftOffDefaults(cfg *SoftOffConfig) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 2700 * time.Second // original_source/softoff's default timeOutSeconds
	}
}

func applyEffecterDefaults(cfg *EffecterMappingConfig) {
	if cfg.Path == "" {
		cfg.Path = "/etc/pldmd/effecters.json"
	}
}

func applyControlAPIDefaults(cfg *ControlAPIConfig) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8080"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	if cfg.TokenDuration == 0 {
		cfg.TokenDuration = time.Hour
	}
}

func applyDatabaseDefaults(cfg *DatabaseConfig) {
	if cfg.Type == "" {
		cfg.Type = DatabaseTypeSQLite
	}
	if cfg.Type == DatabaseTypeSQLite && cfg.SQLite.Path == "" {
		cfg.SQLite.Path = getConfigDir() + "/pldmd.db"
	}
	if cfg.Type == DatabaseTypePostgres {
		if cfg.Postgres.Port == 0 {
			cfg.Postgres.Port = 5432
		}
		if cfg.Postgres.SSLMode == "" {
			cfg.Postgres.SSLMode = "disable"
		}
		if cfg.Postgres.MaxOpenConns == 0 {
			cfg.Postgres.MaxOpenConns = 10
		}
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Address == "" {
		cfg.Address = ":9090"
	}
}

// GetDefaultConfig returns a fully-populated Config with every field set to
// its documented default.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
