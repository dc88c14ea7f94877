package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/barpulse/pkg/bar"
	"gitlab.com/tinyland/lab/barpulse/pkg/collectors"
	"gitlab.com/tinyland/lab/barpulse/pkg/collectors/clock"
	"gitlab.com/tinyland/lab/barpulse/pkg/collectors/power"
	"gitlab.com/tinyland/lab/barpulse/pkg/collectors/sysmetrics"
	"gitlab.com/tinyland/lab/barpulse/pkg/collectors/window"
	"gitlab.com/tinyland/lab/barpulse/pkg/config"
	"gitlab.com/tinyland/lab/barpulse/pkg/daemon"
	"gitlab.com/tinyland/lab/barpulse/pkg/notify"
	"gitlab.com/tinyland/lab/barpulse/pkg/state"
)

// agent wires the shared record, the producers, the control socket and the
// emitter together.
type agent struct {
	cfg     *config.Config
	logger  *slog.Logger
	rec     *state.Record
	notify  *notify.Notifier
	reg     *collectors.Registry
	emitter *bar.Emitter
}

type agentOption func(*agentOptions)

type agentOptions struct {
	conn window.Connector
	now  func() time.Time
}

// withConnector replaces the sway connector.
func withConnector(c window.Connector) agentOption {
	return func(o *agentOptions) { o.conn = c }
}

// withNow replaces time.Now for the clock.
func withNow(now func() time.Time) agentOption {
	return func(o *agentOptions) { o.now = now }
}

func newAgent(cfg *config.Config, logger *slog.Logger, out io.Writer, preview bool, opts ...agentOption) *agent {
	o := agentOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.conn == nil {
		if sock, err := window.ExportSocket(cfg.Window.Socket); err != nil {
			logger.Warn("no compositor socket yet, window producer will keep retrying", "error", err)
		} else {
			logger.Debug("compositor socket", "path", sock)
		}
		o.conn = window.SwayConnector{}
	}

	rec := state.New("")
	n := notify.New()
	reg := collectors.NewRegistry()

	clk := clock.New(cfg.Clock.Format, rec, n, clock.WithNow(o.now))
	rec.SetClock(clk.Format(o.now()))

	// Registration only fails on duplicate names, which cannot happen here.
	_ = reg.Register(window.New(window.Config{
		ConnectRetry:    cfg.Window.ConnectRetry.Duration,
		MaxConnectRetry: cfg.Window.MaxConnectRetry.Duration,
		StreamRetry:     cfg.Window.StreamRetry.Duration,
	}, o.conn, rec, n, window.WithLogger(logger.With("producer", window.Name))))
	_ = reg.Register(clk)
	if cfg.Power.Enabled {
		_ = reg.Register(power.New(cfg.Power.Interval.Duration, nil, rec, n,
			power.WithLogger(logger.With("producer", power.Name))))
	}
	if cfg.SysMetrics.Enabled {
		_ = reg.Register(sysmetrics.New(sysmetrics.Config{Interval: cfg.SysMetrics.Interval.Duration}, rec, n,
			sysmetrics.WithLogger(logger.With("producer", sysmetrics.Name))))
	}

	var sink bar.Sink
	if preview {
		sink = bar.NewPreview(out)
	} else {
		sink = bar.NewI3bar(out)
	}
	opt := bar.Options{Power: cfg.Power.Enabled, Load: cfg.SysMetrics.Enabled}

	return &agent{
		cfg:     cfg,
		logger:  logger,
		rec:     rec,
		notify:  n,
		reg:     reg,
		emitter: bar.NewEmitter(rec, n.C(), sink, opt, logger),
	}
}

// run blocks until ctx is cancelled and every producer has returned, or the
// sink fails.
func (a *agent) run(ctx context.Context) error {
	runner := collectors.NewRunner(a.reg, a.logger)
	if err := runner.Start(ctx); err != nil {
		return err
	}

	// The change channel closes only once no producer can send anymore.
	go func() {
		if err := runner.Wait(); err != nil {
			a.logger.Warn("producer error", "error", err)
		}
		a.notify.Close()
	}()

	if a.cfg.Control.Socket != "" {
		srv := daemon.NewIPCServer(a.cfg.Control.Socket,
			daemon.NewControl(a.rec, a.notify, a.reg, time.Now()),
			a.logger.With("component", "control"))
		if err := srv.Start(); err != nil {
			a.logger.Warn("control socket disabled", "error", err)
		} else {
			defer srv.Stop()
		}
	}

	if err := a.emitter.Run(); err != nil {
		runner.Stop()
		return fmt.Errorf("emit: %w", err)
	}
	return nil
}
