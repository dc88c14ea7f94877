package power

import (
	"context"
	"math"

	"github.com/distatus/battery"

	"gitlab.com/tinyland/lab/barpulse/pkg/state"
)

// BatterySource reads every battery the OS reports through
// github.com/distatus/battery and folds them into one reading.
type BatterySource struct {
	// GetAll lists the batteries; nil means battery.GetAll.
	GetAll func() ([]*battery.Battery, error)
}

// NewBatterySource returns a BatterySource over the host's batteries.
func NewBatterySource() BatterySource {
	return BatterySource{GetAll: battery.GetAll}
}

// cell is the part of one battery the power block needs.
type cell struct {
	charging bool
	current  float64
	full     float64
}

func cellOf(b *battery.Battery) cell {
	// A full battery is on mains.
	s := b.State.String()
	return cell{
		charging: s == "Charging" || s == "Full",
		current:  b.Current,
		full:     b.Full,
	}
}

// Read implements Source. The library may return a partial list together
// with an error; usable entries are still counted.
func (s BatterySource) Read(ctx context.Context) (state.Power, bool) {
	get := s.GetAll
	if get == nil {
		get = battery.GetAll
	}
	bats, _ := get()
	cells := make([]cell, 0, len(bats))
	for _, b := range bats {
		if b == nil {
			continue
		}
		cells = append(cells, cellOf(b))
	}
	return aggregate(cells)
}

// aggregate sums charge over every battery with a known capacity. Any
// charging battery marks the whole reading as charging.
func aggregate(cells []cell) (state.Power, bool) {
	var cur, full float64
	charging := false
	for _, c := range cells {
		if c.full <= 0 || c.current < 0 || math.IsNaN(c.current) {
			continue
		}
		cur += c.current
		full += c.full
		charging = charging || c.charging
	}
	if full <= 0 {
		return state.Power{}, false
	}
	pct := int(math.Round(cur / full * 100))
	if charging {
		return state.NewCharging(pct), true
	}
	return state.NewDischarging(pct), true
}
