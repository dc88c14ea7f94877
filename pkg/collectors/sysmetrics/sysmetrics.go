// Package sysmetrics provides the optional load/memory producer for
// barpulse. It uses gopsutil to read the 1-minute load average and memory
// usage on both Linux and the BSDs without /proc dependencies.
package sysmetrics

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"gitlab.com/tinyland/lab/barpulse/pkg/collectors"
	"gitlab.com/tinyland/lab/barpulse/pkg/state"
)

// Name is the producer name used in the registry.
const Name = "sysmetrics"

// Config controls the SysMetrics producer behaviour.
type Config struct {
	// Interval is the polling rate (default 10s).
	Interval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{Interval: 10 * time.Second}
}

// Sample is one reading. A NaN field was not readable.
type Sample struct {
	Load1      float64
	MemUsedPct float64
}

// Sampler takes one reading.
type Sampler func(ctx context.Context) (Sample, error)

// Producer polls a Sampler and stores the result in the record.
type Producer struct {
	cfg    Config
	sample Sampler
	rec    *state.Record
	notify collectors.Notifier
	logger *slog.Logger
	sleep  collectors.Sleeper
}

// Option configures a Producer.
type Option func(*Producer)

// WithSampler replaces the gopsutil sampler.
func WithSampler(s Sampler) Option {
	return func(p *Producer) { p.sample = s }
}

// WithSleeper replaces the real-time sleeper.
func WithSleeper(s collectors.Sleeper) Option {
	return func(p *Producer) { p.sleep = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Producer) { p.logger = l }
}

// New creates a Producer with the given configuration. Zero-value fields
// in cfg are replaced with defaults.
func New(cfg Config, rec *state.Record, n collectors.Notifier, opts ...Option) *Producer {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	p := &Producer{
		cfg:    cfg,
		sample: Gopsutil,
		rec:    rec,
		notify: n,
		logger: slog.New(slog.DiscardHandler),
		sleep:  collectors.Sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the producer's unique identifier.
func (p *Producer) Name() string { return Name }

// Run samples immediately and then every interval until ctx is cancelled.
func (p *Producer) Run(ctx context.Context, rep collectors.Reporter) error {
	for {
		p.poll(ctx, rep)
		if err := p.sleep(ctx, p.cfg.Interval); err != nil {
			return err
		}
	}
}

func (p *Producer) poll(ctx context.Context, rep collectors.Reporter) {
	s, err := p.sample(ctx)
	if err != nil {
		rep.Failed(err)
		p.logger.Debug("sysmetrics sample failed", "error", err)
	}

	prev := p.rec.Read().Load
	next := state.Load{Load1: prev.Load1, MemUsedPct: prev.MemUsedPct}
	fresh := false
	if !math.IsNaN(s.Load1) {
		next.Load1 = s.Load1
		fresh = true
	}
	if !math.IsNaN(s.MemUsedPct) {
		next.MemUsedPct = s.MemUsedPct
		fresh = true
	}
	if !fresh {
		return
	}

	p.rec.SetLoad(next)
	p.notify.Notify()
	rep.Updated()
}

// Gopsutil samples the host through gopsutil. If one sub-reading fails the
// other is still returned and the failed field is NaN; an error describes
// what failed.
func Gopsutil(ctx context.Context) (Sample, error) {
	select {
	case <-ctx.Done():
		return Sample{Load1: math.NaN(), MemUsedPct: math.NaN()}, ctx.Err()
	default:
	}

	s := Sample{Load1: math.NaN(), MemUsedPct: math.NaN()}
	var errs []string

	if avg, err := load.AvgWithContext(ctx); err != nil {
		errs = append(errs, fmt.Sprintf("load: %v", err))
	} else {
		s.Load1 = avg.Load1
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		errs = append(errs, fmt.Sprintf("memory: %v", err))
	} else {
		s.MemUsedPct = vm.UsedPercent
	}

	if len(errs) > 0 {
		return s, fmt.Errorf("sysmetrics: %s", strings.Join(errs, "; "))
	}
	return s, nil
}
