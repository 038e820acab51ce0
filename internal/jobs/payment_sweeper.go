// Package jobs holds the service's periodic background work.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// PendingRechecker re-queries the provider for payments still in flight.
type PendingRechecker interface {
	RecheckPending(ctx context.Context) (int, error)
}

// PaymentSweeper periodically reconciles payments whose payer never came back
// to the return page.
type PaymentSweeper struct {
	scheduler gocron.Scheduler
	rechecker PendingRechecker
	interval  time.Duration
	logger    *zap.Logger
}

// NewPaymentSweeper creates a sweeper that runs every interval once started.
func NewPaymentSweeper(rechecker PendingRechecker, interval time.Duration, logger *zap.Logger) (*PaymentSweeper, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", interval)
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &PaymentSweeper{
		scheduler: sched,
		rechecker: rechecker,
		interval:  interval,
		logger:    logger,
	}, nil
}

// Start registers the sweep job and starts the scheduler. Runs never overlap;
// a run still in progress when the next is due pushes it back.
func (s *PaymentSweeper) Start(ctx context.Context) error {
	j, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() { s.sweep(ctx) }),
		gocron.WithName("recheck_pending_payments"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule payment sweep: %w", err)
	}
	s.scheduler.Start()
	s.logger.Info("payment sweeper started",
		zap.String("job_id", j.ID().String()),
		zap.Duration("interval", s.interval),
	)
	return nil
}

// Shutdown stops the scheduler and waits for a running sweep to finish.
func (s *PaymentSweeper) Shutdown() error {
	return s.scheduler.Shutdown()
}

func (s *PaymentSweeper) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	checked, err := s.rechecker.RecheckPending(ctx)
	if err != nil {
		s.logger.Error("pending payment sweep failed", zap.Error(err))
		return
	}
	if checked > 0 {
		s.logger.Info("pending payment sweep", zap.Int("checked", checked))
	}
}
