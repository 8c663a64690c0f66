package sched

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Scheduler wraps gocron with the pause/resume semantics the service
// Pause and Continue controls need: paused jobs stay registered but stop
// firing until resumed.
type Scheduler struct {
	logger *zap.Logger
	inner  gocron.Scheduler
}

// New creates a stopped scheduler; call Start after registering jobs
func New(logger *zap.Logger) (*Scheduler, error) {
	inner, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{logger: logger, inner: inner}, nil
}

// Every registers a job firing at the given interval
func (s *Scheduler) Every(interval time.Duration, name string, task func()) error {
	_, err := s.inner.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(name),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	s.logger.Info("Scheduled job",
		zap.String("job", name),
		zap.Duration("interval", interval))
	return nil
}

// Start begins (or resumes) firing registered jobs
func (s *Scheduler) Start() {
	s.inner.Start()
}

// Pause stops jobs from firing while keeping them registered. In-flight
// runs complete.
func (s *Scheduler) Pause() error {
	if err := s.inner.StopJobs(); err != nil {
		return fmt.Errorf("failed to pause jobs: %w", err)
	}
	s.logger.Info("Scheduler paused")
	return nil
}

// Resume restarts firing after a Pause
func (s *Scheduler) Resume() {
	s.inner.Start()
	s.logger.Info("Scheduler resumed")
}

// Shutdown stops the scheduler and releases its resources
func (s *Scheduler) Shutdown() error {
	if err := s.inner.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down scheduler: %w", err)
	}
	return nil
}
