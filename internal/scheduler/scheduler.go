package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/signal-backtest/internal/config"
	"github.com/yourusername/signal-backtest/internal/metrics"
)

// JobRunner executes one scheduled backtest
type JobRunner interface {
	RunJob(ctx context.Context, job config.JobConfig) error
}

// Scheduler manages cron-triggered backtest jobs
type Scheduler struct {
	cron            *cron.Cron
	runner          JobRunner
	logger          *logrus.Logger
	mu              sync.RWMutex
	isRunning       bool
	jobs            map[string]config.JobConfig
	jobIDs          map[string]cron.EntryID
	active          int
	jobTimeout      time.Duration
	gracefulTimeout time.Duration
}

// NewScheduler creates a new scheduler
func NewScheduler(runner JobRunner, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		runner:          runner,
		logger:          logger,
		jobs:            make(map[string]config.JobConfig),
		jobIDs:          make(map[string]cron.EntryID),
		jobTimeout:      time.Hour,
		gracefulTimeout: 30 * time.Second,
	}
}

// AddJob schedules a backtest job on its standard five-field cron expression
func (s *Scheduler) AddJob(job config.JobConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("job %q already scheduled", job.Name)
	}

	entryID, err := s.cron.AddFunc(job.Cron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()
		_ = s.execute(ctx, job)
	})
	if err != nil {
		return fmt.Errorf("failed to add job %q: %w", job.Name, err)
	}

	s.jobs[job.Name] = job
	s.jobIDs[job.Name] = entryID
	s.logger.WithFields(logrus.Fields{
		"job":      job.Name,
		"cron":     job.Cron,
		"strategy": job.Strategy,
	}).Info("Scheduled backtest job")

	return nil
}

// AddJobs schedules every configured job
func (s *Scheduler) AddJobs(jobs []config.JobConfig) error {
	for _, job := range jobs {
		if err := s.AddJob(job); err != nil {
			return err
		}
	}
	return nil
}

// RunNow executes a scheduled job immediately, outside its cron timing
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %q is not scheduled", name)
	}
	return s.execute(ctx, job)
}

func (s *Scheduler) execute(ctx context.Context, job config.JobConfig) error {
	s.trackActive(1)
	defer s.trackActive(-1)

	start := time.Now()
	err := s.runner.RunJob(ctx, job)
	entry := s.logger.WithFields(logrus.Fields{
		"job":      job.Name,
		"duration": time.Since(start).String(),
	})
	if err != nil {
		metrics.RecordScheduledJob(job.Name, "error")
		entry.WithError(err).Error("Scheduled backtest job failed")
		return err
	}
	metrics.RecordScheduledJob(job.Name, "success")
	entry.Info("Scheduled backtest job completed")
	return nil
}

func (s *Scheduler) trackActive(delta int) {
	s.mu.Lock()
	s.active += delta
	active := s.active
	s.mu.Unlock()
	metrics.UpdateActiveJobs(float64(active))
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop waits for running jobs up to the graceful timeout and stops the scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("scheduler stop timed out after %s", s.gracefulTimeout)
	}
	s.logger.Info("Scheduler stopped")
	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}

	return nextRun
}

// Jobs returns the names of scheduled jobs
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot remove job while scheduler is running")
	}
	entryID, ok := s.jobIDs[name]
	if !ok {
		return fmt.Errorf("job %q is not scheduled", name)
	}

	s.cron.Remove(entryID)
	delete(s.jobIDs, name)
	delete(s.jobs, name)
	s.logger.WithField("job", name).Info("Removed job")

	return nil
}
