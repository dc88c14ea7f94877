// Package notify carries payload-free "something changed" tokens from any
// number of producers to a single consumer.
package notify

import "sync"

// Notifier is a multi-producer, single-consumer change signal.
//
// Tokens carry no data, so a pending token already says everything a later
// one would. The channel therefore holds at most one token and extra
// Notify calls collapse into it; Notify never blocks.
type Notifier struct {
	mu     sync.RWMutex
	ch     chan struct{}
	closed bool
}

// New returns an open Notifier.
func New() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// Notify queues a change token unless one is already pending. It is a
// no-op after Close.
func (n *Notifier) Notify() {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// C returns the receive side. It is closed by Close.
func (n *Notifier) C() <-chan struct{} {
	return n.ch
}

// Close disconnects the channel. The consumer sees the disconnect once any
// pending token has been received. Close is idempotent.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	close(n.ch)
}

// Drain removes every token currently queued without blocking and reports
// how many were removed and whether the channel is still open.
func Drain(c <-chan struct{}) (n int, open bool) {
	for {
		select {
		case _, ok := <-c:
			if !ok {
				return n, false
			}
			n++
		default:
			return n, true
		}
	}
}
