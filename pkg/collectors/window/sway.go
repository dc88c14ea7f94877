package window

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joshuarubin/go-sway"
)

// ErrNoSocket is returned by ExportSocket when no IPC socket is known.
var ErrNoSocket = errors.New("window: no IPC socket (SWAYSOCK and I3SOCK unset)")

// ExportSocket points the IPC client at a socket. The client reads
// $SWAYSOCK, so an explicit path, or $I3SOCK when $SWAYSOCK is unset, is
// exported there. It returns the path in use.
func ExportSocket(path string) (string, error) {
	if path == "" {
		path = os.Getenv("SWAYSOCK")
	}
	if path == "" {
		path = os.Getenv("I3SOCK")
	}
	if path == "" {
		return "", ErrNoSocket
	}
	if err := os.Setenv("SWAYSOCK", path); err != nil {
		return "", fmt.Errorf("export SWAYSOCK: %w", err)
	}
	return path, nil
}

// SwayConnector talks to sway over its IPC socket. Each call opens a fresh
// connection so a restarted compositor is picked up on the next try.
type SwayConnector struct{}

// FocusedTitle implements Connector.
func (SwayConnector) FocusedTitle(ctx context.Context) (string, bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client, err := sway.New(ctx)
	if err != nil {
		return "", false, fmt.Errorf("connect: %w", err)
	}
	root, err := client.GetTree(ctx)
	if err != nil {
		return "", false, fmt.Errorf("get_tree: %w", err)
	}
	node := focusedNode(root)
	if node == nil {
		return "", false, nil
	}
	return node.Name, true, nil
}

// Subscribe implements Connector. The socket is dialled once up front so an
// unreachable compositor fails here rather than on the first NextWindow.
func (SwayConnector) Subscribe(ctx context.Context) (Stream, error) {
	dialCtx, cancelDial := context.WithCancel(ctx)
	_, err := sway.New(dialCtx)
	cancelDial()
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	s := newSwayStream(cancel)
	go func() {
		defer close(s.done)
		h := windowHandler{EventHandler: sway.NoOpEventHandler(), out: s.events}
		s.err = sway.Subscribe(subCtx, h, sway.EventTypeWindow)
	}()
	return s, nil
}

// focusedNode searches depth-first, tiled children before floating ones.
func focusedNode(n *sway.Node) *sway.Node {
	if n == nil {
		return nil
	}
	if n.Focused {
		return n
	}
	for _, c := range n.Nodes {
		if f := focusedNode(c); f != nil {
			return f
		}
	}
	for _, c := range n.FloatingNodes {
		if f := focusedNode(c); f != nil {
			return f
		}
	}
	return nil
}

// windowHandler forwards window events and ignores everything else.
type windowHandler struct {
	sway.EventHandler
	out chan<- Event
}

func (h windowHandler) Window(ctx context.Context, e sway.WindowEvent) {
	select {
	case h.out <- Event{Change: Change(e.Change), Title: e.Container.Name}:
	case <-ctx.Done():
	}
}

// swayStream turns the callback subscription into a pull-style Stream.
type swayStream struct {
	events chan Event
	done   chan struct{}
	err    error // valid once done is closed
	cancel context.CancelFunc
}

func newSwayStream(cancel context.CancelFunc) *swayStream {
	return &swayStream{
		events: make(chan Event),
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// NextWindow implements Stream. A subscription that ends without an error
// yields io.EOF.
func (s *swayStream) NextWindow(ctx context.Context) (Event, error) {
	select {
	case ev := <-s.events:
		return ev, nil
	case <-s.done:
		if s.err == nil {
			return Event{}, io.EOF
		}
		return Event{}, fmt.Errorf("window subscription: %w", s.err)
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Close implements Stream. It stops the subscription and waits for it.
func (s *swayStream) Close() error {
	s.cancel()
	<-s.done
	return nil
}
