package collectors

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- Registry Tests ---

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	p := NewMockProducer("test")

	if err := r.Register(p); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, ok := r.Get("test")
	if !ok {
		t.Fatal("Get returned false for registered producer")
	}
	if got.Name() != "test" {
		t.Errorf("Name = %q, want %q", got.Name(), "test")
	}
}

func TestRegistryDuplicateNameError(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(NewMockProducer("dup")); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := r.Register(NewMockProducer("dup")); err == nil {
		t.Fatal("second Register should have returned an error for duplicate name")
	}
}

func TestRegistryGetNotFound(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Get("missing"); ok {
		t.Fatal("Get should return false for unregistered producer")
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(NewMockProducer("charlie"))
	_ = r.Register(NewMockProducer("alpha"))
	_ = r.Register(NewMockProducer("bravo"))

	names := r.List()
	expected := []string{"alpha", "bravo", "charlie"}

	if len(names) != len(expected) {
		t.Fatalf("List returned %d names, want %d", len(names), len(expected))
	}
	for i, name := range names {
		if name != expected[i] {
			t.Errorf("List[%d] = %q, want %q", i, name, expected[i])
		}
	}
}

func TestRegistryStatus(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(NewMockProducer("clock"))

	s, ok := r.Status("clock")
	if !ok {
		t.Fatal("Status returned false for registered producer")
	}
	if s.Name != "clock" {
		t.Errorf("Status.Name = %q, want %q", s.Name, "clock")
	}
	if !s.Healthy {
		t.Error("initial status should be healthy")
	}
	if s.Updates != 0 {
		t.Errorf("initial Updates = %d, want 0", s.Updates)
	}
	if s.State != "registered" {
		t.Errorf("initial State = %q, want %q", s.State, "registered")
	}
}

func TestRegistryStatusNotFound(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Status("nope"); ok {
		t.Fatal("Status should return false for unregistered producer")
	}
}

func TestRegistryAllStatusSorted(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(NewMockProducer("b"))
	_ = r.Register(NewMockProducer("a"))

	statuses := r.AllStatus()
	if len(statuses) != 2 {
		t.Fatalf("AllStatus returned %d, want 2", len(statuses))
	}
	if statuses[0].Name != "a" || statuses[1].Name != "b" {
		t.Errorf("AllStatus not sorted: got %q, %q", statuses[0].Name, statuses[1].Name)
	}
}

func TestReporterTracksProgress(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(NewMockProducer("window"))
	rep := r.Reporter("window")

	rep.SetState("connecting")
	rep.Failed(errors.New("no socket"))

	s, _ := r.Status("window")
	if s.State != "connecting" {
		t.Errorf("State = %q, want %q", s.State, "connecting")
	}
	if s.Healthy {
		t.Error("status should be unhealthy after Failed")
	}
	if s.Failures != 1 || s.LastError != "no socket" {
		t.Errorf("Failures = %d LastError = %q, want 1 %q", s.Failures, s.LastError, "no socket")
	}

	rep.Updated()
	s, _ = r.Status("window")
	if !s.Healthy {
		t.Error("status should be healthy again after Updated")
	}
	if s.Updates != 1 {
		t.Errorf("Updates = %d, want 1", s.Updates)
	}
	if s.LastUpdate.IsZero() {
		t.Error("LastUpdate should be set after Updated")
	}
}

func TestReporterUnknownNameIsNoop(t *testing.T) {
	r := NewRegistry()
	rep := r.Reporter("ghost")
	rep.Updated()
	rep.Failed(nil)
	rep.SetState("x")

	if len(r.AllStatus()) != 0 {
		t.Error("reporting for an unknown producer should not create a status")
	}
}

// --- Mock Producer Tests ---

func TestMockProducerDefaultBlocksUntilCancel(t *testing.T) {
	m := NewMockProducer("block")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, NopReporter{}) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if m.RunCount() != 1 {
		t.Errorf("RunCount = %d, want 1", m.RunCount())
	}
}

// --- Runner Tests ---

func TestRunnerStartsEveryProducer(t *testing.T) {
	r := NewRegistry()
	started := make(chan string, 3)
	for _, name := range []string{"window", "clock", "power"} {
		_ = r.Register(NewMockProducer(name, WithRunFunc(func(ctx context.Context, rep Reporter) error {
			started <- name
			<-ctx.Done()
			return ctx.Err()
		})))
	}

	runner := NewRunner(r, nil)
	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	seen := make(map[string]bool)
	deadline := time.After(2 * time.Second)
	for len(seen) < 3 {
		select {
		case name := <-started:
			seen[name] = true
		case <-deadline:
			t.Fatalf("timed out; only saw: %v", seen)
		}
	}

	if err := runner.Stop(); err != nil {
		t.Errorf("Stop returned %v, want nil for cancellation", err)
	}
	for _, s := range r.AllStatus() {
		if s.State != "stopped" {
			t.Errorf("%s State = %q, want stopped", s.Name, s.State)
		}
	}
}

func TestRunnerContextCancellation(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(NewMockProducer("slow"))

	runner := NewRunner(r, nil)
	ctx, cancel := context.WithCancel(context.Background())
	_ = runner.Start(ctx)

	cancel()

	done := make(chan error, 1)
	go func() { done <- runner.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait = %v, want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Wait did not return after context cancellation")
	}
}

func TestRunnerFailedProducerDoesNotStopOthers(t *testing.T) {
	r := NewRegistry()
	setupErr := errors.New("no battery interface")
	_ = r.Register(NewMockProducer("broken", WithRunFunc(func(ctx context.Context, rep Reporter) error {
		return setupErr
	})))
	alive := NewMockProducer("alive")
	_ = r.Register(alive)

	runner := NewRunner(r, nil)
	_ = runner.Start(context.Background())

	// Give the broken producer time to exit.
	deadline := time.Now().Add(2 * time.Second)
	for {
		s, _ := r.Status("broken")
		if s.State == "stopped" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("broken producer never stopped")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if s, _ := r.Status("alive"); s.State == "stopped" {
		t.Error("alive producer stopped because another one failed")
	}

	err := runner.Stop()
	if !errors.Is(err, setupErr) {
		t.Errorf("Stop = %v, want %v", err, setupErr)
	}
	if s, _ := r.Status("broken"); s.Healthy {
		t.Error("broken producer should be unhealthy")
	}
}

func TestRunnerStartTwice(t *testing.T) {
	runner := NewRunner(NewRegistry(), nil)
	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer runner.Stop()
	if err := runner.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}
}

func TestRunnerEmptyRegistry(t *testing.T) {
	runner := NewRunner(NewRegistry(), nil)
	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("Start with empty registry should not error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		_ = runner.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on empty registry")
	}
}

func TestRunnerStopIdempotent(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(NewMockProducer("x"))

	runner := NewRunner(r, nil)
	_ = runner.Start(context.Background())

	_ = runner.Stop()
	_ = runner.Stop()
	_ = runner.Stop()
}

func TestRunnerStopBeforeStart(t *testing.T) {
	runner := NewRunner(NewRegistry(), nil)
	if err := runner.Stop(); err != nil {
		t.Errorf("Stop before Start = %v, want nil", err)
	}
}

func TestRunnerHealth(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(NewMockProducer("good"))
	_ = r.Register(NewMockProducer("bad", WithRunFunc(func(ctx context.Context, rep Reporter) error {
		rep.Failed(errors.New("fail"))
		<-ctx.Done()
		return ctx.Err()
	})))

	runner := NewRunner(r, nil)
	_ = runner.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for runner.Health()["bad"] {
		if time.Now().After(deadline) {
			t.Fatal("bad producer never reported unhealthy")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !runner.Health()["good"] {
		t.Error("good should still be healthy")
	}
	_ = runner.Stop()
}

func TestRunnerConcurrentRegistrySafety(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = r.Register(NewMockProducer(fmt.Sprintf("concurrent-%d", n)))
		}(i)
	}
	wg.Wait()

	if names := r.List(); len(names) != 10 {
		t.Errorf("expected 10 producers, got %d", len(names))
	}

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r.Reporter(fmt.Sprintf("concurrent-%d", n)).Updated()
			_ = r.AllStatus()
		}(i)
	}
	wg.Wait()
}

// --- Sleep ---

func TestSleepReturnsAfterDuration(t *testing.T) {
	start := time.Now()
	if err := Sleep(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("Sleep: %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("Sleep returned early")
	}
}

func TestSleepInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep = %v, want context.Canceled", err)
	}
}

func TestSleepZeroDuration(t *testing.T) {
	if err := Sleep(context.Background(), 0); err != nil {
		t.Errorf("Sleep(0) = %v, want nil", err)
	}
}
