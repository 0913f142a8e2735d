// Package maintenance runs recurring background jobs on cron schedules,
// such as compacting the orders journal.
package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one recurring task.
type Job struct {
	Name string
	Spec string // five-field cron expression
	Run  func(ctx context.Context) error
}

// Scheduler fires jobs at their cron times. Each job reschedules itself
// after every run; overlapping runs of the same job are not possible.
type Scheduler struct {
	jobs      []Job
	schedules map[string]cron.Schedule
	timers    map[string]*time.Timer
	parser    cron.Parser
	logger    zerolog.Logger
	mu        sync.Mutex
	stopped   bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		schedules: make(map[string]cron.Schedule),
		timers:    make(map[string]*time.Timer),
		parser:    cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Add registers a job. Returns an error when the cron spec does not parse.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" {
		return fmt.Errorf("job name is required")
	}
	if job.Run == nil {
		return fmt.Errorf("job %s: run function is required", job.Name)
	}

	schedule, err := s.parser.Parse(job.Spec)
	if err != nil {
		return fmt.Errorf("job %s: invalid cron spec %q: %w", job.Name, job.Spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.schedules[job.Name]; exists {
		return fmt.Errorf("job %s: already registered", job.Name)
	}

	s.jobs = append(s.jobs, job)
	s.schedules[job.Name] = schedule
	return nil
}

// Start schedules all registered jobs.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		s.scheduleLocked(job)
	}

	s.logger.Info().Int("jobs", len(s.jobs)).Msg("Maintenance scheduler started")
}

// Stop cancels all pending timers.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true
	s.cancel()

	for name, timer := range s.timers {
		timer.Stop()
		delete(s.timers, name)
	}

	s.logger.Info().Msg("Maintenance scheduler stopped")
}

func (s *Scheduler) scheduleLocked(job Job) {
	if s.stopped {
		return
	}

	next := s.schedules[job.Name].Next(time.Now())
	delay := time.Until(next)
	if delay < 0 {
		delay = 0
	}

	s.timers[job.Name] = time.AfterFunc(delay, func() {
		s.execute(job)
	})

	s.logger.Debug().
		Str("job", job.Name).
		Time("nextRun", next).
		Msg("Job scheduled")
}

func (s *Scheduler) execute(job Job) {
	start := time.Now()

	err := job.Run(s.ctx)

	duration := time.Since(start)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("job", job.Name).
			Dur("duration", duration).
			Msg("Job failed")
	} else {
		s.logger.Info().
			Str("job", job.Name).
			Dur("duration", duration).
			Msg("Job completed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleLocked(job)
}
