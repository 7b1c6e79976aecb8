package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/healthdesk/client-registry/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs periodic maintenance: activity events older than the
// retention window are pruned on a cron schedule.
type Scheduler struct {
	eventSvc  services.EventServiceProvider
	retention time.Duration
	cron      *cron.Cron
	done      chan struct{}
	stopOnce  sync.Once
	now       func() time.Time
}

// NewScheduler creates a new scheduler instance. schedule is a standard cron
// expression or descriptor such as "@daily".
func NewScheduler(eventSvc services.EventServiceProvider, retention time.Duration, schedule string) (*Scheduler, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("event retention must be positive, got %s", retention)
	}
	s := &Scheduler{
		eventSvc:  eventSvc,
		retention: retention,
		cron:      cron.New(),
		done:      make(chan struct{}),
		now:       time.Now,
	}
	if _, err := s.cron.AddFunc(schedule, s.prune); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Run prunes once, then starts the cron loop and blocks until Stop is called.
func (s *Scheduler) Run() {
	log.Info().Dur("retention", s.retention).Msg("Starting background scheduler...")
	s.prune()
	s.cron.Start()

	<-s.done
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopping background scheduler.")
}

// Stop halts the scheduler. Running jobs are allowed to finish. Calling
// Stop more than once is harmless.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// PruneOnce deletes events older than the retention window and reports how
// many were removed.
func (s *Scheduler) PruneOnce(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)
	n, err := s.eventSvc.PruneEvents(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune events before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return n, nil
}

func (s *Scheduler) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.PruneOnce(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: failed to prune events")
		return
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Msg("Scheduler: pruned old events")
	}
}
