package config

import "sort"

// Preset is a named set of optional blocks.
type Preset struct {
	Power      bool
	SysMetrics bool
}

var presets = map[string]Preset{
	"minimal":     {},
	"laptop":      {Power: true},
	"workstation": {SysMetrics: true},
	"full":        {Power: true, SysMetrics: true},
}

// PresetNames returns the known preset names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupPreset returns the named preset.
func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

// ApplyPreset sets the enable flags of cfg from the named preset. Keys for
// which defined reports true were set explicitly and are left alone; a nil
// defined treats every key as unset. Unknown names are ignored here and
// rejected by Validate.
func ApplyPreset(cfg *Config, name string, defined func(key ...string) bool) {
	p, ok := presets[name]
	if !ok {
		return
	}
	if defined == nil {
		defined = func(...string) bool { return false }
	}
	if !defined("power", "enabled") {
		cfg.Power.Enabled = p.Power
	}
	if !defined("sysmetrics", "enabled") {
		cfg.SysMetrics.Enabled = p.SysMetrics
	}
}
