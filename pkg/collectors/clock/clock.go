// Package clock keeps the shared record's clock text current at minute
// granularity, aligned to wall-clock minute boundaries.
package clock

import (
	"context"
	"time"

	"gitlab.com/tinyland/lab/barpulse/pkg/collectors"
	"gitlab.com/tinyland/lab/barpulse/pkg/state"
)

// Name is the producer name used in the registry.
const Name = "clock"

// DefaultLayout renders e.g. "Mon 02 Jan 15:04".
const DefaultLayout = "Mon 02 Jan 15:04"

// Producer writes the formatted local time once per minute.
type Producer struct {
	layout string
	rec    *state.Record
	notify collectors.Notifier
	now    func() time.Time
	sleep  collectors.Sleeper
}

// Option configures a Producer.
type Option func(*Producer)

// WithNow replaces time.Now.
func WithNow(now func() time.Time) Option {
	return func(p *Producer) { p.now = now }
}

// WithSleeper replaces the real-time sleeper.
func WithSleeper(s collectors.Sleeper) Option {
	return func(p *Producer) { p.sleep = s }
}

// New creates a clock producer. An empty layout selects DefaultLayout.
func New(layout string, rec *state.Record, n collectors.Notifier, opts ...Option) *Producer {
	if layout == "" {
		layout = DefaultLayout
	}
	p := &Producer{
		layout: layout,
		rec:    rec,
		notify: n,
		now:    time.Now,
		sleep:  collectors.Sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the producer's unique identifier.
func (p *Producer) Name() string { return Name }

// Format renders t with the producer's layout.
func (p *Producer) Format(t time.Time) string {
	return t.Format(p.layout)
}

// Run updates the clock, notifies, then sleeps until the next minute
// boundary, until ctx is cancelled.
func (p *Producer) Run(ctx context.Context, rep collectors.Reporter) error {
	for {
		p.rec.SetClock(p.Format(p.now()))
		p.notify.Notify()
		rep.Updated()

		if err := p.sleep(ctx, UntilNextMinute(p.now())); err != nil {
			return err
		}
	}
}

// UntilNextMinute returns the whole seconds left until the next minute
// boundary: 60 - t.Second(), so between 1s and 60s.
func UntilNextMinute(t time.Time) time.Duration {
	return time.Duration(60-t.Second()) * time.Second
}
