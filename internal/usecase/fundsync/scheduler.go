package fundsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Scheduler runs RefreshAllNAV on a cron schedule
type Scheduler struct {
	cron    *cron.Cron
	service *Service
	logger  arbor.ILogger
	timeout time.Duration

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler for service. schedule is a standard
// five-field cron expression; each run is bounded by timeout when positive.
func NewScheduler(service *Service, schedule string, timeout time.Duration, logger arbor.ILogger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		service: service,
		logger:  logger,
		timeout: timeout,
	}

	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}

	return s, nil
}

// Start begins running scheduled refreshes in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Int("entries", len(s.cron.Entries())).Msg("NAV refresh scheduler started")
}

// Stop halts the scheduler and waits for a running refresh to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("NAV refresh scheduler stopped")
}

// run executes one refresh; a tick that fires while a refresh is still
// running is skipped.
func (s *Scheduler) run() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn().Msg("Previous NAV refresh still running, skipping tick")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report, err := s.service.RefreshAllNAV(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled NAV refresh failed")
		return
	}

	s.logger.Info().
		Int("updated", report.UpdatedCount()).
		Int("failed", report.FailedCount()).
		Str("duration", report.FinishedAt.Sub(report.StartedAt).String()).
		Msg("Scheduled NAV refresh complete")
}
