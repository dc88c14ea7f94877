// Package window tracks the title of the focused window through the
// sway/i3 IPC event stream.
//
// The producer is a two-state machine. In Connecting it tries to open a
// window-event subscription, sleeping between attempts for as long as the
// window manager stays unreachable. In Streaming it applies focus and title
// changes to the shared record. When the stream fails or ends it sleeps
// briefly and goes back to Connecting. It never gives up and never
// surfaces an error other than context cancellation.
package window

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"gitlab.com/tinyland/lab/barpulse/pkg/collectors"
	"gitlab.com/tinyland/lab/barpulse/pkg/state"
)

// Name is the producer name used in the registry.
const Name = "window"

// States reported through collectors.Reporter.
const (
	StateConnecting = "connecting"
	StateStreaming  = "streaming"
)

// Config controls reconnect timing.
type Config struct {
	// ConnectRetry is the wait after a failed subscribe (default 2s).
	ConnectRetry time.Duration

	// MaxConnectRetry caps the wait when it grows between consecutive
	// failures. Zero or anything <= ConnectRetry keeps it constant.
	MaxConnectRetry time.Duration

	// StreamRetry is the wait after an established stream ends (default 1s).
	StreamRetry time.Duration
}

// DefaultConfig returns the default reconnect timing.
func DefaultConfig() Config {
	return Config{
		ConnectRetry: 2 * time.Second,
		StreamRetry:  1 * time.Second,
	}
}

// Change is the kind of a window event, as named by the IPC protocol.
type Change string

// Window event kinds.
const (
	ChangeNew            Change = "new"
	ChangeClose          Change = "close"
	ChangeFocus          Change = "focus"
	ChangeTitle          Change = "title"
	ChangeFullscreenMode Change = "fullscreen_mode"
	ChangeMove           Change = "move"
	ChangeFloating       Change = "floating"
	ChangeUrgent         Change = "urgent"
	ChangeMark           Change = "mark"
)

// Event is one window event: what changed and the container's title
// (empty when the container has no name).
type Event struct {
	Change Change
	Title  string
}

// Stream yields window events until it fails or ends.
type Stream interface {
	NextWindow(ctx context.Context) (Event, error)
	Close() error
}

// Connector opens connections to the window manager.
type Connector interface {
	// FocusedTitle queries the layout tree once and returns the title of
	// the focused node, if any.
	FocusedTitle(ctx context.Context) (title string, found bool, err error)

	// Subscribe opens a window-event subscription.
	Subscribe(ctx context.Context) (Stream, error)
}

// Producer keeps state.Record's title in step with the focused window.
type Producer struct {
	cfg    Config
	conn   Connector
	rec    *state.Record
	notify collectors.Notifier
	logger *slog.Logger
	sleep  collectors.Sleeper
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

// New creates a window producer. Zero-value fields in cfg are replaced with
// defaults.
func New(cfg Config, conn Connector, rec *state.Record, n collectors.Notifier, opts ...Option) *Producer {
	def := DefaultConfig()
	if cfg.ConnectRetry <= 0 {
		cfg.ConnectRetry = def.ConnectRetry
	}
	if cfg.StreamRetry <= 0 {
		cfg.StreamRetry = def.StreamRetry
	}
	p := &Producer{
		cfg:    cfg,
		conn:   conn,
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

// Run seeds the title from the current tree and then follows window events
// until ctx is cancelled.
func (p *Producer) Run(ctx context.Context, rep collectors.Reporter) error {
	p.seed(ctx, rep)

	retry := p.newBackOff()
	for {
		rep.SetState(StateConnecting)
		stream, err := p.conn.Subscribe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			rep.Failed(err)
			wait := retry.NextBackOff()
			if wait == backoff.Stop {
				wait = p.cfg.ConnectRetry
			}
			p.logger.Debug("window subscribe failed", "error", err, "retry_in", wait)
			if err := p.sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		retry.Reset()
		rep.SetState(StateStreaming)
		err = p.follow(ctx, stream, rep)
		_ = stream.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, io.EOF) {
			p.logger.Debug("window event stream ended")
		} else {
			rep.Failed(err)
			p.logger.Debug("window event stream failed", "error", err)
		}
		if err := p.sleep(ctx, p.cfg.StreamRetry); err != nil {
			return err
		}
	}
}

// seed performs the one-shot startup query so the first emission already
// carries a title.
func (p *Producer) seed(ctx context.Context, rep collectors.Reporter) {
	title, found, err := p.conn.FocusedTitle(ctx)
	if err != nil {
		p.logger.Debug("initial tree query failed", "error", err)
		return
	}
	if !found {
		return
	}
	p.rec.SetTitle(title)
	p.notify.Notify()
	rep.Updated()
}

// follow applies events from stream until it returns an error.
func (p *Producer) follow(ctx context.Context, stream Stream, rep collectors.Reporter) error {
	for {
		ev, err := stream.NextWindow(ctx)
		if err != nil {
			return err
		}
		if !Relevant(ev.Change) {
			continue
		}
		p.rec.SetTitle(ev.Title)
		p.notify.Notify()
		rep.Updated()
	}
}

// Relevant reports whether a window change can alter the focused title.
func Relevant(c Change) bool {
	return c == ChangeFocus || c == ChangeTitle
}

func (p *Producer) newBackOff() backoff.BackOff {
	if p.cfg.MaxConnectRetry <= p.cfg.ConnectRetry {
		return backoff.NewConstantBackOff(p.cfg.ConnectRetry)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.ConnectRetry
	b.MaxInterval = p.cfg.MaxConnectRetry
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
