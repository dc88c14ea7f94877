package collectors

import (
	"context"
	"sync/atomic"
)

// MockProducer implements Producer for testing. By default Run blocks until
// the context is cancelled; RunFunc overrides that.
type MockProducer struct {
	name     string
	runCount atomic.Int64

	// RunFunc, if set, overrides the default Run behavior.
	RunFunc func(ctx context.Context, rep Reporter) error
}

// MockProducerOption configures a MockProducer.
type MockProducerOption func(*MockProducer)

// WithRunFunc sets a custom function for Run.
func WithRunFunc(fn func(ctx context.Context, rep Reporter) error) MockProducerOption {
	return func(m *MockProducer) { m.RunFunc = fn }
}

// NewMockProducer creates a mock producer with the given name and options.
func NewMockProducer(name string, opts ...MockProducerOption) *MockProducer {
	m := &MockProducer{name: name}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the producer name.
func (m *MockProducer) Name() string { return m.name }

// Run increments the run counter and delegates to RunFunc if set.
func (m *MockProducer) Run(ctx context.Context, rep Reporter) error {
	m.runCount.Add(1)
	if m.RunFunc != nil {
		return m.RunFunc(ctx, rep)
	}
	<-ctx.Done()
	return ctx.Err()
}

// RunCount returns how many times Run has been called.
func (m *MockProducer) RunCount() int64 {
	return m.runCount.Load()
}
