package assess

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically expires abandoned in-progress attempts. The lazy
// check in GetAttempt/SaveAnswer already guarantees no stale attempt is ever
// acted on; the sweep bounds how long an abandoned attempt stays unscored.
// Cadence is an open parameter, not a correctness requirement.
type Sweeper struct {
	c   *cron.Cron
	svc *Service
}

// NewSweeper schedules SweepExpired on the given cron spec, e.g. "@every 30s".
func NewSweeper(svc *Service, spec string) (*Sweeper, error) {
	s := &Sweeper{c: cron.New(), svc: svc}
	_, err := s.c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := svc.SweepExpired(ctx)
		if err != nil {
			log.Printf("[SWEEP] error: %v", err)
			return
		}
		if n > 0 {
			log.Printf("[SWEEP] expired %d attempt(s)", n)
		}
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sweeper) Start() { s.c.Start() }

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() { <-s.c.Stop().Done() }
