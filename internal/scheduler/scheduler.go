package scheduler

import (
	"context"
	"time"

	"collabhunts/internal/config"
	"collabhunts/internal/domain"
	"collabhunts/internal/metrics"
	"collabhunts/internal/monitor"

	"github.com/rs/zerolog"
)

// Lock names shared with the HTTP trigger surface so a cron-invoked run
// and a ticker run cannot overlap.
const (
	LockDelivery = "delivery-monitor"
	LockDispute  = "dispute-monitor"
)

// Scheduler drives both monitors on a fixed interval. Every persistence
// mutation is conditional, so a missed or doubled tick is safe; the run
// lock exists to keep the un-gated admin warning from double-firing.
type Scheduler struct {
	cfg      config.MonitorConfig
	delivery *monitor.DeliveryMonitor
	dispute  *monitor.DisputeMonitor
	locker   domain.RunLocker
	logger   zerolog.Logger
}

func New(cfg config.MonitorConfig, delivery *monitor.DeliveryMonitor, dispute *monitor.DisputeMonitor, locker domain.RunLocker, logger *zerolog.Logger) *Scheduler {
	if locker == nil {
		locker = noopLocker{}
	}
	return &Scheduler{
		cfg:      cfg,
		delivery: delivery,
		dispute:  dispute,
		locker:   locker,
		logger:   logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start runs the tick loop until ctx is done. The first pass happens
// immediately so a restart does not wait a full interval.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info().Dur("interval", s.cfg.Interval).Msg("scheduler started")
	defer s.logger.Info().Msg("scheduler stopped")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes one pass of both monitors, each under its own lease.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.runLocked(ctx, LockDelivery, func(ctx context.Context) error {
		start := time.Now()
		_, err := s.delivery.Run(ctx)
		metrics.ObserveRun("delivery", outcome(err), time.Since(start))
		return err
	})

	s.runLocked(ctx, LockDispute, func(ctx context.Context) error {
		start := time.Now()
		_, err := s.dispute.Run(ctx)
		metrics.ObserveRun("dispute", outcome(err), time.Since(start))
		return err
	})
}

func (s *Scheduler) runLocked(ctx context.Context, name string, run func(context.Context) error) {
	release, acquired, err := s.locker.Acquire(ctx, name, s.cfg.LockTTL)
	if err != nil {
		s.logger.Error().Err(err).Str("lock", name).Msg("run lock unavailable, skipping pass")
		return
	}
	if !acquired {
		s.logger.Debug().Str("lock", name).Msg("another run holds the lease, skipping pass")
		return
	}
	defer release()

	if err := run(ctx); err != nil {
		s.logger.Error().Err(err).Str("lock", name).Msg("monitor run failed")
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string, time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}
