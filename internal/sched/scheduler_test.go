package sched

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

// TestSchedulerRunsJobs tests that a registered job fires after Start
func TestSchedulerRunsJobs(t *testing.T) {
	s, err := New(zap.NewNop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer s.Shutdown()

	fired := make(chan struct{}, 1)
	err = s.Every(10*time.Millisecond, "test-job", func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Every() error: %v", err)
	}

	s.Start()

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("job never fired")
	}
}

// TestSchedulerPauseResume tests that Pause stops firing and Resume
// restarts it
func TestSchedulerPauseResume(t *testing.T) {
	s, err := New(zap.NewNop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer s.Shutdown()

	fired := make(chan struct{}, 64)
	if err := s.Every(10*time.Millisecond, "test-job", func() {
		fired <- struct{}{}
	}); err != nil {
		t.Fatalf("Every() error: %v", err)
	}

	s.Start()
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("job never fired before pause")
	}

	if err := s.Pause(); err != nil {
		t.Fatalf("Pause() error: %v", err)
	}

	// Drain anything in flight, then confirm silence
	time.Sleep(50 * time.Millisecond)
	for len(fired) > 0 {
		<-fired
	}
	select {
	case <-fired:
		t.Error("job fired while paused")
	case <-time.After(100 * time.Millisecond):
	}

	s.Resume()
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("job never fired after resume")
	}
}
