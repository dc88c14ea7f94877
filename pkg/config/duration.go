package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNegativeDuration is returned for retry and poll intervals below zero.
var ErrNegativeDuration = errors.New("duration must not be negative")

// Duration is a time.Duration written in TOML as a Go duration string
// ("500ms", "2s", "1m"). An empty string leaves the field at zero so that
// Validate can report it by key.
type Duration struct {
	time.Duration
}

// UnmarshalText parses the TOML string form.
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return fmt.Errorf("duration %q: %w", raw, err)
	case v < 0:
		return fmt.Errorf("duration %q: %w", raw, ErrNegativeDuration)
	}
	d.Duration = v
	return nil
}

// MarshalText writes the value back in the form UnmarshalText reads.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
