package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrInvalidInterval = errors.New("job interval must be positive")
	ErrUnknownJob      = errors.New("unknown cron job")
)

// Job represents a scheduled job. A zero Timeout lets a run last until the scheduler stops.
type Job struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Fn       func(ctx context.Context) error
}

// Scheduler runs each registered job on its own ticker. Runs of the same job never overlap.
type Scheduler struct {
	jobs   map[string]Job
	order  []string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:   make(map[string]Job),
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob registers a job. Registering a name twice replaces the earlier job.
func (s *Scheduler) AddJob(job Job) error {
	if job.Interval <= 0 {
		return fmt.Errorf("job %s: %w", job.Name, ErrInvalidInterval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name]; !exists {
		s.order = append(s.order, job.Name)
	}
	s.jobs[job.Name] = job
	slog.Info("Cron job registered", "name", job.Name, "interval", job.Interval)
	return nil
}

// Start begins running all scheduled jobs
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range s.order {
		s.wg.Add(1)
		go s.loop(s.jobs[name])
	}

	slog.Info("Cron scheduler started", "job_count", len(s.order))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	slog.Info("Stopping cron scheduler...")
	s.cancel()
	s.wg.Wait()
	slog.Info("Cron scheduler stopped")
}

func (s *Scheduler) loop(job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	s.execute(s.ctx, job)

	for {
		select {
		case <-s.ctx.Done():
			slog.Info("Cron job stopping", "name", job.Name)
			return
		case <-ticker.C:
			s.execute(s.ctx, job)
		}
	}
}

// RunJob runs one registered job synchronously, outside its schedule.
func (s *Scheduler) RunJob(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrUnknownJob)
	}
	return s.execute(ctx, job)
}

func (s *Scheduler) execute(ctx context.Context, job Job) (err error) {
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, p)
		}
		if err != nil {
			slog.Error("Cron job failed", "name", job.Name, "error", err, "duration", time.Since(start))
			return
		}
		slog.Debug("Cron job completed", "name", job.Name, "duration", time.Since(start))
	}()

	return job.Fn(ctx)
}
