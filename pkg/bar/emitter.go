package bar

import (
	"log/slog"

	"gitlab.com/tinyland/lab/barpulse/pkg/notify"
	"gitlab.com/tinyland/lab/barpulse/pkg/state"
)

// Emitter is the single consumer of change tokens. Each wake-up drains
// every pending token and writes exactly one line built from a fresh
// snapshot.
type Emitter struct {
	rec    *state.Record
	tokens <-chan struct{}
	sink   Sink
	opts   Options
	logger *slog.Logger

	emitted int
}

// NewEmitter creates an Emitter. A nil logger discards.
func NewEmitter(rec *state.Record, tokens <-chan struct{}, sink Sink, opts Options, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Emitter{rec: rec, tokens: tokens, sink: sink, opts: opts, logger: logger}
}

// Run writes the preamble and then emits one line per wake-up. It returns
// nil once the token channel is closed and every earlier token has been
// served, or the first sink error.
func (e *Emitter) Run() error {
	if err := e.sink.Begin(); err != nil {
		return err
	}
	for {
		if _, ok := <-e.tokens; !ok {
			e.logger.Debug("change channel closed", "emitted", e.emitted)
			return nil
		}
		n, open := notify.Drain(e.tokens)
		if err := e.sink.Emit(Blocks(e.rec.Read(), e.opts)); err != nil {
			return err
		}
		e.emitted++
		if n > 0 {
			e.logger.Debug("coalesced change tokens", "extra", n)
		}
		if !open {
			e.logger.Debug("change channel closed", "emitted", e.emitted)
			return nil
		}
	}
}

// Emitted returns the number of lines written so far. It must not be
// called concurrently with Run.
func (e *Emitter) Emitted() int { return e.emitted }
