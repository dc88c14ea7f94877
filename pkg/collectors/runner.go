package collectors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Runner starts every registered producer in its own goroutine and waits
// for all of them to return. Producers run until the context passed to
// Start is cancelled.
type Runner struct {
	reg    *Registry
	logger *slog.Logger

	mu      sync.Mutex
	group   *errgroup.Group
	cancel  context.CancelFunc
	started bool
}

// NewRunner creates a runner over the producers in reg. A nil logger
// discards output.
func NewRunner(reg *Registry, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{reg: reg, logger: logger}
}

// Start launches all producers. It returns an error if called twice.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return errors.New("runner already started")
	}
	r.started = true

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	// A producer failing to start must not take the others down, so the
	// group is not derived from ctx.
	var g errgroup.Group
	for _, p := range r.reg.producersInOrder() {
		rep := r.reg.Reporter(p.Name())
		g.Go(func() error {
			rep.SetState("running")
			r.logger.Debug("producer started", "producer", p.Name())

			err := p.Run(ctx, rep)

			rep.SetState("stopped")
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				rep.Failed(err)
				r.logger.Warn("producer exited", "producer", p.Name(), "error", err)
				return fmt.Errorf("%s: %w", p.Name(), err)
			}
			r.logger.Debug("producer stopped", "producer", p.Name())
			return nil
		})
	}
	r.group = &g
	return nil
}

// Wait blocks until every producer has returned. It returns the first
// error other than context cancellation.
func (r *Runner) Wait() error {
	r.mu.Lock()
	g := r.group
	r.mu.Unlock()

	if g == nil {
		return nil
	}
	return g.Wait()
}

// Stop cancels all producers and waits for them. It is safe to call more
// than once.
func (r *Runner) Stop() error {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return r.Wait()
}

// Health returns a map of producer name to health status.
func (r *Runner) Health() map[string]bool {
	statuses := r.reg.AllStatus()
	health := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		health[s.Name] = s.Healthy
	}
	return health
}
