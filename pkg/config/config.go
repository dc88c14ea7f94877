// Package config loads the barpulse TOML file, applies presets and
// environment overrides, and validates the result.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Output modes.
const (
	OutputI3bar   = "i3bar"
	OutputPreview = "preview"
	OutputAuto    = "auto"
)

// Config is the top-level barpulse configuration.
type Config struct {
	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`
	// Output is "i3bar", "preview" or "auto".
	Output string `toml:"output"`
	// Preset names a block set; see ApplyPreset.
	Preset string `toml:"preset"`

	Clock      ClockConfig      `toml:"clock"`
	Window     WindowConfig     `toml:"window"`
	Power      PowerConfig      `toml:"power"`
	SysMetrics SysMetricsConfig `toml:"sysmetrics"`
	Control    ControlConfig    `toml:"control"`
}

// ClockConfig controls the clock producer.
type ClockConfig struct {
	// Format is a Go reference-time layout.
	Format string `toml:"format"`
}

// WindowConfig controls the focused-window producer.
type WindowConfig struct {
	// Socket overrides $SWAYSOCK / $I3SOCK.
	Socket          string   `toml:"socket"`
	ConnectRetry    Duration `toml:"connect_retry"`
	MaxConnectRetry Duration `toml:"max_connect_retry"`
	StreamRetry     Duration `toml:"stream_retry"`
}

// PowerConfig controls the battery producer.
type PowerConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval Duration `toml:"interval"`
}

// SysMetricsConfig controls the load/memory producer.
type SysMetricsConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval Duration `toml:"interval"`
}

// ControlConfig controls the local control socket.
type ControlConfig struct {
	// Socket is the unix socket path. Empty disables the control server.
	Socket string `toml:"socket"`
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.Output {
	case OutputI3bar, OutputPreview, OutputAuto:
	default:
		errs = append(errs, fmt.Errorf("output: unknown mode %q (want i3bar, preview or auto)", c.Output))
	}
	if c.Preset != "" {
		if _, ok := presets[c.Preset]; !ok {
			errs = append(errs, fmt.Errorf("preset: unknown preset %q (want one of %s)", c.Preset, strings.Join(PresetNames(), ", ")))
		}
	}
	if strings.TrimSpace(c.Clock.Format) == "" {
		errs = append(errs, errors.New("clock.format: must not be empty"))
	}
	if c.Window.ConnectRetry.Duration <= 0 {
		errs = append(errs, errors.New("window.connect_retry: must be positive"))
	}
	if c.Window.StreamRetry.Duration <= 0 {
		errs = append(errs, errors.New("window.stream_retry: must be positive"))
	}
	if m := c.Window.MaxConnectRetry.Duration; m != 0 && m < c.Window.ConnectRetry.Duration {
		errs = append(errs, fmt.Errorf("window.max_connect_retry: %s is below connect_retry %s", m, c.Window.ConnectRetry.Duration))
	}
	if c.Power.Enabled && c.Power.Interval.Duration <= 0 {
		errs = append(errs, errors.New("power.interval: must be positive when power is enabled"))
	}
	if c.SysMetrics.Enabled && c.SysMetrics.Interval.Duration <= 0 {
		errs = append(errs, errors.New("sysmetrics.interval: must be positive when sysmetrics is enabled"))
	}

	return errors.Join(errs...)
}

// ParseLevel maps a log_level string to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log_level: unknown level %q", s)
}
