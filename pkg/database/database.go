// Package database opens the connection pools backing the credential store
// and applies the embedded schema migrations.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/simple-auth/pkg/config"
)

// OpenPostgres creates a pgx pool and verifies connectivity.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresURL())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetimeDuration()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	slog.Info("Connected to PostgreSQL", "addr", cfg.Addr(), "database", cfg.Name)
	return pool, nil
}

// MySQLConfig builds the driver configuration. Times are read and written in
// UTC, and affected-row counts report matched rows so idempotent updates
// are not mistaken for missing accounts.
func MySQLConfig(cfg config.DatabaseConfig) *mysql.Config {
	c := mysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = cfg.Addr()
	c.DBName = cfg.Name
	c.ParseTime = true
	c.Loc = time.UTC
	c.ClientFoundRows = true
	if cfg.SSLMode != "" && cfg.SSLMode != "disable" {
		c.TLSConfig = "true"
	}
	return c
}

// OpenMySQL opens a database/sql pool and verifies connectivity.
func OpenMySQL(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	connector, err := mysql.NewConnector(MySQLConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("create mysql connector: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql ping failed: %w", err)
	}

	slog.Info("Connected to MySQL", "addr", cfg.Addr(), "database", cfg.Name)
	return db, nil
}
