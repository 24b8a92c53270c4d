package store

import (
	"context"
	"fmt"
)

// Healthcheck pings the underlying database connection.
func (s *GORMStore) Healthcheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("store: underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying database connection.
func (s *GORMStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("store: underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
