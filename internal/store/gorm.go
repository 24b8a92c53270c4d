package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/openbmc-go/pldmd/internal/config"
	"github.com/openbmc-go/pldmd/internal/store/migrations"
)

// GORMStore implements Store over GORM, backed by either SQLite or
// PostgreSQL per cfg.Type. Schema is brought up to date by
// internal/store/migrations before any query runs, rather than via GORM's
// own AutoMigrate.
type GORMStore struct {
	db  *gorm.DB
	cfg *config.DatabaseConfig
}

// New opens the terminus/effecter configuration store described by cfg,
// applying pending schema migrations before returning.
func New(cfg *config.DatabaseConfig) (*GORMStore, error) {
	var dialector gorm.Dialector
	var dialect string

	switch cfg.Type {
	case config.DatabaseTypeSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
			return nil, fmt.Errorf("store: create database directory: %w", err)
		}
		dsn := cfg.SQLite.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		dialector = sqlite.Open(dsn)
		dialect = "sqlite3"

	case config.DatabaseTypePostgres:
		dialector = postgres.Open(cfg.Postgres.DSN())
		dialect = "postgres"

	default:
		return nil, fmt.Errorf("store: unsupported database type %q", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("store: underlying sql.DB: %w", err)
	}
	if cfg.Type == config.DatabaseTypePostgres && cfg.Postgres.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	}

	if err := migrations.Run(sqlDB, dialect); err != nil {
		return nil, err
	}

	return &GORMStore{db: db, cfg: cfg}, nil
}

// DB returns the underlying GORM connection, for callers that need a raw
// query (e.g. tests seeding fixtures directly).
func (s *GORMStore) DB() *gorm.DB { return s.db }

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

func convertNotFoundError(err error, notFoundErr error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundErr
	}
	return err
}

var _ Store = (*GORMStore)(nil)
