// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartMaintenanceScheduler runs the background sweeps that keep the
// in-memory tables bounded: expired-session sweep, submission-guard prune,
// and rate-limiter eviction. Jobs run independently of request traffic; a
// cycle that finds nothing to do is a no-op.
func (s *GameSessionService) StartMaintenanceScheduler(limiter *RateLimiter) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			if n := s.sessions.SweepExpired(); n > 0 {
				log.Printf("🧹 [SWEEP] removed %d expired game session(s)", n)
			}
		}),
	)

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			s.guard.Sweep()
		}),
	)

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			if n := limiter.Evict(); n > 0 {
				log.Printf("🧹 [SWEEP] evicted %d rate-limit window(s)", n)
			}
		}),
	)

	sched.Start()
	return sched, nil
}
