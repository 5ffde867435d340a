package config

import (
	"fmt"
	"time"

	"github.com/sosodev/duration"
)

// parseISO8601OrGoDuration tries to parse as ISO 8601 first, then as Go duration
func parseISO8601OrGoDuration(s string) (time.Duration, error) {
	isoDuration, err := duration.Parse(s)
	if err == nil {
		return isoDuration.ToTimeDuration(), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: expected ISO 8601 (PT30M) or Go (30m) format", s)
	}
	return d, nil
}

func positiveDuration(name, value string) error {
	d, err := parseISO8601OrGoDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", name, value)
	}
	return nil
}

// mustDuration is only used after Validate has accepted the value.
func mustDuration(value string) time.Duration {
	d, _ := parseISO8601OrGoDuration(value)
	return d
}
