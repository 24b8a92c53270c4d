package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks cfg's struct tags and the few cross-field constraints a
// tag alone can't express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("config: validate: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q constraint", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}

	if cfg.Database.Type == DatabaseTypePostgres {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host: required when database.type is postgres")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database: required when database.type is postgres")
		}
	}
	if cfg.Database.Type == DatabaseTypeSQLite && cfg.Database.SQLite.Path == "" {
		return fmt.Errorf("database.sqlite.path: required when database.type is sqlite")
	}

	if cfg.OEM.IBM.Enabled && cfg.OEM.IBM.Bucket == "" {
		return fmt.Errorf("oem.ibm.bucket: required when oem.ibm.enabled is true")
	}
	if cfg.SoftOff.Enabled && cfg.SoftOff.EffecterID == 0 {
		return fmt.Errorf("softoff.effecter_id: required when softoff.enabled is true")
	}

	return nil
}
