package watch

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler fires a task at a fixed period. Watch mode uses it to enqueue
// interval rebuild triggers alongside filesystem events.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a scheduler running task every interval. The
// scheduler is idle until Start.
func NewScheduler(interval time.Duration, task func()) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName("interval-rebuild"),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("create interval job: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// Start begins firing the task.
func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for a running task to return.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}
