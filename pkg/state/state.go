// Package state holds the single shared record of every fact barpulse
// tracks. Producers mutate one field at a time through the setters; the
// emitter reads whole-record copies with Read.
package state

import (
	"fmt"
	"sync"
)

// PowerKind tags a Power value.
type PowerKind int

const (
	Discharging PowerKind = iota
	Charging
)

// String returns "charging" or "discharging".
func (k PowerKind) String() string {
	if k == Charging {
		return "charging"
	}
	return "discharging"
}

// Power is the battery state: Charging(pct) or Discharging(pct), with pct
// in 0..100.
type Power struct {
	Kind    PowerKind `json:"kind"`
	Percent uint8     `json:"percent"`
}

// NewCharging returns Charging(pct), clamping pct to 100.
func NewCharging(pct int) Power {
	return Power{Kind: Charging, Percent: clampPercent(pct)}
}

// NewDischarging returns Discharging(pct), clamping pct to 0..100.
func NewDischarging(pct int) Power {
	return Power{Kind: Discharging, Percent: clampPercent(pct)}
}

func (p Power) String() string {
	return fmt.Sprintf("%s(%d)", p.Kind, p.Percent)
}

func clampPercent(pct int) uint8 {
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return uint8(pct)
}

// Load holds the system metrics shown by the optional load block.
type Load struct {
	Load1       float64 `json:"load1"`
	MemUsedPct  float64 `json:"mem_used_percent"`
	Initialized bool    `json:"initialized"`
}

// Snapshot is an owned copy of the record taken at one instant.
type Snapshot struct {
	Title string `json:"title"`
	Power Power  `json:"power"`
	Clock string `json:"clock"`
	Load  Load   `json:"load"`
}

// Record is the shared mutable state. The zero value is not usable; use New.
//
// Every method holds mu only for the duration of a field copy. Callers must
// not expect Record to notify anyone; pairing a mutation with a change
// token is the producer's job.
type Record struct {
	mu   sync.Mutex
	snap Snapshot
}

// New returns a record initialised with the default values: empty title,
// Discharging(0) and the given clock text.
func New(clock string) *Record {
	return &Record{
		snap: Snapshot{
			Power: NewDischarging(0),
			Clock: clock,
		},
	}
}

// Read returns a copy of all fields.
func (r *Record) Read() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// SetTitle replaces the focused window title.
func (r *Record) SetTitle(title string) {
	r.mu.Lock()
	r.snap.Title = title
	r.mu.Unlock()
}

// SetPower replaces the power state. It reports whether the value changed.
func (r *Record) SetPower(p Power) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snap.Power == p {
		return false
	}
	r.snap.Power = p
	return true
}

// SetClock replaces the formatted clock text.
func (r *Record) SetClock(text string) {
	r.mu.Lock()
	r.snap.Clock = text
	r.mu.Unlock()
}

// SetLoad replaces the system metrics.
func (r *Record) SetLoad(l Load) {
	l.Initialized = true
	r.mu.Lock()
	r.snap.Load = l
	r.mu.Unlock()
}
