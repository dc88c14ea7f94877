package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads configuration from the standard config path.
// Search order:
//  1. $XDG_CONFIG_HOME/barpulse/config.toml
//  2. ~/.config/barpulse/config.toml
//
// If no file exists, returns DefaultConfig() with env overrides applied.
func Load() (*Config, error) {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return LoadFromFile(p)
		}
	}
	return defaults(), nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaults(), nil
		}
		return nil, err
	}
	defer f.Close()
	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader reads configuration from an io.Reader. Keys the document
// leaves out keep their defaults; a preset only fills enable flags the
// document does not set itself.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	applyEnvOverrides(cfg)
	if cfg.Preset != "" {
		ApplyPreset(cfg, cfg.Preset, md.IsDefined)
	}
	return cfg, nil
}

// DefaultConfig returns the default configuration: i3bar output, window and
// clock producers only.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Output:   OutputI3bar,
		Clock: ClockConfig{
			Format: "Mon 02 Jan 15:04",
		},
		Window: WindowConfig{
			ConnectRetry: Duration{2 * time.Second},
			StreamRetry:  Duration{1 * time.Second},
		},
		Power: PowerConfig{
			Enabled:  false,
			Interval: Duration{30 * time.Second},
		},
		SysMetrics: SysMetricsConfig{
			Enabled:  false,
			Interval: Duration{10 * time.Second},
		},
	}
}

// defaults is DefaultConfig with env overrides and any env preset applied.
func defaults() *Config {
	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	if cfg.Preset != "" {
		ApplyPreset(cfg, cfg.Preset, nil)
	}
	return cfg
}

// applyEnvOverrides checks environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BARPULSE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("BARPULSE_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv("BARPULSE_PRESET"); v != "" {
		cfg.Preset = v
	}
}

// configSearchPaths returns the ordered list of config file paths to try.
func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	var paths []string

	xdg := xdgConfigHome(home)
	paths = append(paths, filepath.Join(xdg, "barpulse", "config.toml"))

	// If XDG_CONFIG_HOME was explicitly set, also try the fallback default.
	defaultXDG := filepath.Join(home, ".config")
	if xdg != defaultXDG {
		paths = append(paths, filepath.Join(defaultXDG, "barpulse", "config.toml"))
	}

	return paths
}

// xdgConfigHome returns XDG_CONFIG_HOME or ~/.config as fallback.
func xdgConfigHome(home string) string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".config")
}
