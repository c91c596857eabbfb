package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// TrashPurger purges trashed loans past the retention window
type TrashPurger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// OverdueSweeper reclassifies unpaid installments past their due date
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context) (int, error)
}

// Scheduler runs the platform's periodic maintenance jobs
type Scheduler struct {
	cron    *cron.Cron
	trash   TrashPurger
	emis    OverdueSweeper
	logger  *logrus.Logger
	timeout time.Duration
}

// NewScheduler creates a new Scheduler
func NewScheduler(trash TrashPurger, emis OverdueSweeper, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		trash:   trash,
		emis:    emis,
		logger:  logger,
		timeout: 5 * time.Minute,
	}
}

// Start registers the purge and sweep jobs and starts the cron loop
func (s *Scheduler) Start(purgeSpec, sweepSpec string) error {
	if _, err := s.cron.AddFunc(purgeSpec, s.runPurge); err != nil {
		return fmt.Errorf("add trash purge job: %w", err)
	}

	if _, err := s.cron.AddFunc(sweepSpec, s.runSweep); err != nil {
		return fmt.Errorf("add overdue sweep job: %w", err)
	}

	s.cron.Start()
	s.logger.Infof("Maintenance scheduler started (purge: %q, sweep: %q)", purgeSpec, sweepSpec)

	return nil
}

// Stop stops the cron loop and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Maintenance scheduler stopped")
}

func (s *Scheduler) runPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	purged, err := s.trash.PurgeExpired(ctx)
	if err != nil {
		s.logger.Errorf("Trash purge failed: %v", err)
		return
	}

	s.logger.Infof("Trash purge finished, %d loans removed", purged)
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	changed, err := s.emis.SweepOverdue(ctx)
	if err != nil {
		s.logger.Errorf("Overdue sweep failed: %v", err)
		return
	}

	s.logger.Infof("Overdue sweep finished, %d EMIs reclassified", changed)
}
