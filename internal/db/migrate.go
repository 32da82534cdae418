package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations applies all pending .up.sql migrations from migrationsPath.
func RunMigrations(config Config, migrationsPath string) error {
	// The pgx/v5 migrate driver registers the pgx5 URL scheme.
	m, err := migrate.New("file://"+migrationsPath, "pgx5"+strings.TrimPrefix(config.URL(), "postgres"))
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
