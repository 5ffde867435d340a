package config

import (
	"errors"
	"time"
)

// EmailConfig holds SMTP settings for outbound mail
type EmailConfig struct {
	Enabled  bool   `env:"EMAIL_ENABLED" env-default:"true"`
	Host     string `env:"SMTP_HOST" env-default:"localhost"`
	Port     uint16 `env:"SMTP_PORT" env-default:"1025"`
	Username string `env:"SMTP_USER" env-default:""`
	Password string `env:"SMTP_PASS" env-default:""`
	From     string `env:"SMTP_FROM" env-default:"noreply@example.com"`
	TLS      bool   `env:"SMTP_SECURE" env-default:"false"`
	Timeout  string `env:"SMTP_TIMEOUT" env-default:"PT30S"`
}

// ParseTimeout parses the SMTP dial/send timeout
func (e EmailConfig) ParseTimeout() (time.Duration, error) {
	return parseISO8601OrGoDuration(e.Timeout)
}

func (e EmailConfig) Validate() error {
	if !e.Enabled {
		return nil
	}
	if e.Host == "" || e.From == "" {
		return errors.New("SMTP_HOST and SMTP_FROM are required when EMAIL_ENABLED is true")
	}
	return positiveDuration("SMTP_TIMEOUT", e.Timeout)
}
