package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestIntervalSchedulerFiresImmediatelyAndRepeats(t *testing.T) {
	t.Parallel()

	var fired atomic.Int32
	s := NewIntervalScheduler(20 * time.Millisecond)

	if err := s.Start(context.Background(), func(time.Time) { fired.Add(1) }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = s.Stop(context.Background()) }()

	deadline := time.After(2 * time.Second)
	for fired.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 2 firings, got %d", fired.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestIntervalSchedulerStopHaltsFiring(t *testing.T) {
	t.Parallel()

	var fired atomic.Int32
	s := NewIntervalScheduler(10 * time.Millisecond)

	if err := s.Start(context.Background(), func(time.Time) { fired.Add(1) }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	settled := fired.Load()
	time.Sleep(50 * time.Millisecond)
	if after := fired.Load(); after > settled+1 {
		t.Fatalf("scheduler kept firing after stop: %d -> %d", settled, after)
	}

	// Stop is idempotent.
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestIntervalSchedulerNilJob(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(time.Hour)
	if err := s.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start with nil job: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
