// Package power polls battery charge and AC-line state into the shared
// record. A value that cannot be read is skipped for that cycle; the
// record keeps whatever it held before.
package power

import (
	"context"
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/barpulse/pkg/collectors"
	"gitlab.com/tinyland/lab/barpulse/pkg/state"
)

// Name is the producer name used in the registry.
const Name = "power"

// DefaultInterval is the polling period when none is configured.
const DefaultInterval = 30 * time.Second

// Source reads the current power state. ok is false when the platform has
// no battery or the values are unreadable.
type Source interface {
	Read(ctx context.Context) (p state.Power, ok bool)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (state.Power, bool)

// Read implements Source.
func (f SourceFunc) Read(ctx context.Context) (state.Power, bool) { return f(ctx) }

// Producer polls a Source on a fixed interval.
type Producer struct {
	interval time.Duration
	src      Source
	rec      *state.Record
	notify   collectors.Notifier
	logger   *slog.Logger
	sleep    collectors.Sleeper
}

// Option configures a Producer.
type Option func(*Producer)

// WithSleeper replaces the real-time sleeper.
func WithSleeper(s collectors.Sleeper) Option {
	return func(p *Producer) { p.sleep = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Producer) { p.logger = l }
}

// New creates a power producer. A non-positive interval selects
// DefaultInterval; a nil src selects DefaultSource().
func New(interval time.Duration, src Source, rec *state.Record, n collectors.Notifier, opts ...Option) *Producer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if src == nil {
		src = DefaultSource()
	}
	p := &Producer{
		interval: interval,
		src:      src,
		rec:      rec,
		notify:   n,
		logger:   slog.New(slog.DiscardHandler),
		sleep:    collectors.Sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the producer's unique identifier.
func (p *Producer) Name() string { return Name }

// Run polls immediately and then every interval until ctx is cancelled.
// Only a changed value triggers a notification.
func (p *Producer) Run(ctx context.Context, rep collectors.Reporter) error {
	for {
		p.poll(ctx, rep)
		if err := p.sleep(ctx, p.interval); err != nil {
			return err
		}
	}
}

func (p *Producer) poll(ctx context.Context, rep collectors.Reporter) {
	pw, ok := p.src.Read(ctx)
	if !ok {
		rep.SetState("unavailable")
		p.logger.Debug("power state unavailable; keeping previous value")
		return
	}
	rep.SetState("running")
	if p.rec.SetPower(pw) {
		p.notify.Notify()
		rep.Updated()
	}
}
