package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration of the auth service.
// Every field is populated from the environment by cleanenv.
type Config struct {
	Database      DatabaseConfig
	JWT           JWTConfig
	Login         LoginConfig
	PasswordReset PasswordResetConfig
	Email         EmailConfig
	RateLimit     RateLimitConfig
	Redis         RedisConfig
	Prefix        PrefixConfig
	Log           LogConfig
	Metrics       MetricsConfig
	Admin         AdminConfig
}

// Load reads optional .env files and then the process environment.
// Missing env files are skipped; any other read error is returned.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Debug("env file not found, using environment variables", "file", f)
				continue
			}
			return Config{}, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section and joins the problems found.
func (c Config) Validate() error {
	return errors.Join(
		c.Database.Validate(),
		c.JWT.Validate(),
		c.Login.Validate(),
		c.PasswordReset.Validate(),
		c.Email.Validate(),
		c.RateLimit.Validate(),
	)
}
