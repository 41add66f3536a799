// Package scheduler runs periodic maintenance: expiring missed gym
// reservations and purging stale verification codes and sessions.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one periodic task. Spec is any robfig/cron spec, e.g. "@every 5m".
type Job struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

type Scheduler struct {
	cron   *cron.Cron
	jobs   []Job
	ctx    context.Context
	cancel context.CancelFunc
}

func New(jobs ...Job) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		jobs:   jobs,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start registers every job and starts the cron loop.
func (s *Scheduler) Start() error {
	for _, job := range s.jobs {
		if _, err := s.cron.AddFunc(job.Spec, s.wrap(job)); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", job.Name, job.Spec, err)
		}
		log.Printf("[SCHEDULER] %s scheduled %s", job.Name, job.Spec)
	}
	s.cron.Start()
	return nil
}

// Stop cancels running jobs and waits for them to return or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		log.Printf("[SCHEDULER] stop timed out waiting for running jobs")
	}
}

func (s *Scheduler) wrap(job Job) func() {
	return func() {
		timeout := job.Timeout
		if timeout <= 0 {
			timeout = time.Minute
		}
		ctx, cancel := context.WithTimeout(s.ctx, timeout)
		defer cancel()

		start := time.Now()
		if err := job.Run(ctx); err != nil {
			log.Printf("[SCHEDULER] %s failed after %s: %v", job.Name, time.Since(start).Round(time.Millisecond), err)
		}
	}
}
