package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/churchapp/backend/internal/config"
)

type GymSweeper interface {
	CancelPendingExpired(ctx context.Context, cutoff time.Time) (int, error)
}

type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

func every(d time.Duration) string {
	return "@every " + d.String()
}

// GymSweepJob cancels pending reservations whose check-in window has passed.
func GymSweepJob(gym GymSweeper, interval time.Duration, now func() time.Time) Job {
	return Job{
		Name: "gym-sweep",
		Spec: every(interval),
		Run: func(ctx context.Context) error {
			n, err := gym.CancelPendingExpired(ctx, now())
			if err != nil {
				return err
			}
			if n > 0 {
				log.Printf("[SCHEDULER] gym-sweep cancelled %d missed reservations", n)
			}
			return nil
		},
	}
}

// CleanupJob runs c.CleanupExpired and logs what was removed.
func CleanupJob(name string, c Cleaner, interval time.Duration) Job {
	return Job{
		Name: name,
		Spec: every(interval),
		Run: func(ctx context.Context) error {
			n, err := c.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				log.Printf("[SCHEDULER] %s removed %d rows", name, n)
			}
			return nil
		},
	}
}

// DefaultJobs wires the maintenance jobs for the configured intervals.
func DefaultJobs(cfg config.GymConfig, gym GymSweeper, codes, sessions Cleaner) []Job {
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	var jobs []Job
	if cfg.CleanupEnabled {
		jobs = append(jobs, GymSweepJob(gym, interval, time.Now))
	}
	jobs = append(jobs,
		CleanupJob("verification-cleanup", codes, 10*time.Minute),
		CleanupJob("session-cleanup", sessions, time.Hour),
	)
	return jobs
}
