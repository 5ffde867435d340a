package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"
)

// DatabaseConfig selects the credential store and how to reach it.
type DatabaseConfig struct {
	Driver          string `env:"DB_DRIVER" env-default:"postgres"`
	Host            string `env:"DB_HOST" env-default:"localhost"`
	Port            uint16 `env:"DB_PORT" env-default:"5432"`
	Name            string `env:"DB_NAME" env-default:"simple_auth"`
	User            string `env:"DB_USER" env-default:"auth"`
	Password        string `env:"DB_PASSWORD" env-default:"pwd"`
	SSLMode         string `env:"DB_SSLMODE" env-default:"disable"`
	MaxOpenConns    int    `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns    int    `env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetime string `env:"DB_CONN_MAX_LIFETIME" env-default:"PT5M"`
}

// Addr returns host:port
func (d DatabaseConfig) Addr() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(int(d.Port)))
}

// PostgresURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) PostgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Addr(),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

// ConnMaxLifetimeDuration returns the parsed connection lifetime
func (d DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return mustDuration(d.ConnMaxLifetime)
}

func (d DatabaseConfig) Validate() error {
	switch d.Driver {
	case DriverPostgres, DriverMySQL, DriverMemory:
	default:
		return fmt.Errorf("DB_DRIVER must be one of postgres, mysql, memory; got %q", d.Driver)
	}
	if d.Driver == DriverMemory {
		return nil
	}
	if d.Host == "" || d.Name == "" {
		return fmt.Errorf("DB_HOST and DB_NAME are required for driver %s", d.Driver)
	}
	if d.MaxOpenConns < 1 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be at least 1, got %d", d.MaxOpenConns)
	}
	return positiveDuration("DB_CONN_MAX_LIFETIME", d.ConnMaxLifetime)
}
