// Package collectors defines the interfaces, registry, and runner for
// barpulse fact producers. Each producer (window, clock, power, sysmetrics)
// owns one or more fields of the shared state record, writes them on its
// own schedule and sends a change token after every write. The Runner
// starts them all and waits for them to return.
package collectors

import (
	"context"
	"time"
)

// Producer is the interface every fact source implements. Implementations
// live in sub-packages (e.g., pkg/collectors/clock) and are registered with
// the Registry at startup.
type Producer interface {
	// Name returns a unique identifier for this producer (e.g., "clock").
	Name() string

	// Run blocks for the producer's lifetime. It returns ctx.Err() once ctx
	// is cancelled; any other error means the producer could not start at
	// all. Transient failures are absorbed and reported through rep.
	Run(ctx context.Context, rep Reporter) error
}

// Reporter receives progress from a running producer. The runner hands
// each producer a Reporter bound to its registry entry.
type Reporter interface {
	// Updated records that the producer wrote the record and notified.
	Updated()

	// Failed records a recoverable failure.
	Failed(err error)

	// SetState records a short state label such as "connecting".
	SetState(state string)
}

// Notifier is the send side of the change channel. Notify must not block.
type Notifier interface {
	Notify()
}

// ProducerStatus tracks the runtime state of a single producer. Values
// handed out by the Registry are copies.
type ProducerStatus struct {
	Name       string    `json:"name"`
	State      string    `json:"state"`
	Healthy    bool      `json:"healthy"`
	Updates    int64     `json:"updates"`
	Failures   int64     `json:"failures"`
	LastUpdate time.Time `json:"last_update"`
	LastError  string    `json:"last_error,omitempty"`
}

// Sleeper waits for d or until ctx is done, whichever comes first. It
// returns ctx.Err() when interrupted. Producers take one so tests can run
// their schedules without real time.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real-time Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NopReporter discards all progress.
type NopReporter struct{}

func (NopReporter) Updated()        {}
func (NopReporter) Failed(error)    {}
func (NopReporter) SetState(string) {}
