package power

import (
	"context"

	"gitlab.com/tinyland/lab/barpulse/pkg/state"
)

// CtlReader reads an integer value by symbolic name from the kernel control
// interface. ok is false for missing or unreadable names.
type CtlReader func(name string) (value int, ok bool)

// Names of the ACPI battery sysctls on FreeBSD.
const (
	CtlBatteryLife   = "hw.acpi.battery.life"
	CtlBatteryACLine = "hw.acpi.battery.acline"
)

// CtlSource derives the power state from a charge value and an AC-line
// value read through a CtlReader.
type CtlSource struct {
	Ctl    CtlReader
	Life   string
	ACLine string
}

// NewCtlSource returns a CtlSource over the FreeBSD ACPI battery names.
func NewCtlSource(read CtlReader) CtlSource {
	return CtlSource{Ctl: read, Life: CtlBatteryLife, ACLine: CtlBatteryACLine}
}

// Read implements Source. A missing or out-of-range charge value makes the
// whole reading absent; a missing AC-line value counts as on battery.
func (s CtlSource) Read(ctx context.Context) (state.Power, bool) {
	if s.Ctl == nil {
		return state.Power{}, false
	}
	life, ok := s.Ctl(s.Life)
	if !ok || life < 0 || life > 100 {
		return state.Power{}, false
	}
	if ac, ok := s.Ctl(s.ACLine); ok && ac == 1 {
		return state.NewCharging(life), true
	}
	return state.NewDischarging(life), true
}
