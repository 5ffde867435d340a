package database

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tendant/simple-auth/pkg/config"
)

//go:embed migrations
var migrationFiles embed.FS

// Migrations returns the migration files for a driver, rooted at the .sql files.
func Migrations(driver string) (fs.FS, error) {
	switch driver {
	case config.DriverPostgres, config.DriverMySQL:
		return fs.Sub(migrationFiles, "migrations/"+driver)
	default:
		return nil, fmt.Errorf("no migrations for driver %q", driver)
	}
}

// MigrationURL returns the golang-migrate database URL for cfg.
func MigrationURL(cfg config.DatabaseConfig) (string, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return cfg.PostgresURL(), nil
	case config.DriverMySQL:
		c := MySQLConfig(cfg)
		c.MultiStatements = true
		return "mysql://" + c.FormatDSN(), nil
	default:
		return "", fmt.Errorf("driver %q has no database to migrate", cfg.Driver)
	}
}

// RunMigrate applies or rolls back the accounts schema.
// Supported commands: "up", "down", "version", "force N".
func RunMigrate(logger *slog.Logger, cfg config.DatabaseConfig, command string, args []string) error {
	switch command {
	case "up", "down", "version", "force":
	default:
		return fmt.Errorf("unknown migrate command: %s (use: up, down, version, force)", command)
	}
	if command == "force" && len(args) == 0 {
		return fmt.Errorf("force requires a version number argument")
	}
	if logger == nil {
		logger = slog.Default()
	}

	files, err := Migrations(cfg.Driver)
	if err != nil {
		return err
	}
	dsn, err := MigrationURL(cfg)
	if err != nil {
		return err
	}

	sourceDriver, err := iofs.New(files, ".")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, dsn)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	defer m.Close()

	m.Log = &migrateLogger{logger: logger}

	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up: %w", err)
		}
		ver, dirty, _ := m.Version()
		logger.Info("migration complete", slog.Uint64("version", uint64(ver)), slog.Bool("dirty", dirty))

	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down: %w", err)
		}
		logger.Info("all migrations rolled back")

	case "version":
		ver, dirty, err := m.Version()
		if err != nil {
			return fmt.Errorf("migrate version: %w", err)
		}
		logger.Info("current version", slog.Uint64("version", uint64(ver)), slog.Bool("dirty", dirty))

	case "force":
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version: %w", err)
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("migrate force: %w", err)
		}
		logger.Info("forced version", slog.Int("version", version))
	}

	return nil
}

type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

func (l *migrateLogger) Verbose() bool {
	return false
}
