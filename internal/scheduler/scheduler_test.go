package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type mockChecker struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockChecker) CheckPages(_ context.Context, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return false, m.err
}

func (m *mockChecker) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerTicks(t *testing.T) {
	checker := &mockChecker{}
	sched := New(checker, 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sched.Run(ctx)

	if n := checker.callCount(); n < 2 {
		t.Errorf("expected at least 2 ticks in 100ms, got %d", n)
	}
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	checker := &mockChecker{}
	sched := New(checker, 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

func TestSchedulerSurvivesFailingTicks(t *testing.T) {
	checker := &mockChecker{err: errors.New("site unreachable")}
	sched := New(checker, 10*time.Millisecond, discardLogger())
	sched.SetCooldown(time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sched.Run(ctx)

	if n := checker.callCount(); n < 2 {
		t.Errorf("expected the loop to keep ticking after errors, got %d ticks", n)
	}
}

func TestSchedulerCooldownBlocksUntilCancel(t *testing.T) {
	checker := &mockChecker{err: errors.New("down")}
	sched := New(checker, 5*time.Millisecond, discardLogger())
	sched.SetCooldown(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop while in cooldown")
	}
}
