// Package scheduler runs the contact-discovery maintenance jobs on a cron
// loop. Relevance scores decay with time, so a periodic rescore keeps the
// ranking honest even for users with no new events.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const rescoreTimeout = 10 * time.Minute

// Rescorer recomputes relevance scores across the contact store.
type Rescorer interface {
	RescoreAll(ctx context.Context) (int, error)
}

// CronScheduler wraps robfig/cron around the rescore job.
type CronScheduler struct {
	cron     *cron.Cron
	rescorer Rescorer
	logger   *zap.Logger
}

// NewCronScheduler creates and configures the scheduler.
func NewCronScheduler(rescorer Rescorer, logger *zap.Logger) *CronScheduler {
	return &CronScheduler{
		cron:     cron.New(),
		rescorer: rescorer,
		logger:   logger,
	}
}

// Start registers the cron jobs and starts the scheduler.
// Call Stop() to gracefully shut down.
func (s *CronScheduler) Start() error {
	if _, err := s.cron.AddFunc("@daily", s.rescore); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started", zap.String("rescore_schedule", "@daily"))
	return nil
}

// Stop gracefully stops the cron scheduler, waiting for a running job.
func (s *CronScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("cron scheduler stopped")
}

func (s *CronScheduler) rescore() {
	ctx, cancel := context.WithTimeout(context.Background(), rescoreTimeout)
	defer cancel()

	start := time.Now()
	updated, err := s.rescorer.RescoreAll(ctx)
	if err != nil {
		s.logger.Error("relevance rescore failed", zap.Error(err))
		return
	}
	s.logger.Info("relevance rescore completed",
		zap.Int("contacts_updated", updated),
		zap.Duration("elapsed", time.Since(start)),
	)
}
