// Package scheduler runs the background jobs (inactivity scans, feed polls,
// cleanup) on cron schedules. A job that is still running when its next tick
// fires is skipped, never run concurrently with itself.
package scheduler

import (
	"context"
	"fmt"

	"github.com/noyon-ahamed/are-you-okay/internal/logger"

	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	cron   *cron.Cron
	log    *logger.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(log *logger.Logger) *Scheduler {
	cronLog := &cronLogger{log: log}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithChain(
				cron.Recover(cronLog),
				cron.SkipIfStillRunning(cronLog),
			),
		),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers a job under the given cron spec. The job receives a context
// that is cancelled when the scheduler stops.
func (s *Scheduler) Add(spec, name string, job func(ctx context.Context)) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.log.Debug("Running scheduled job: %s", name)
		job(s.ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%s): %w", name, spec, err)
	}
	s.log.Info("Scheduled job %s at %s", name, spec)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Scheduler started")
}

// Stop halts scheduling, cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Scheduler stopped")
}

// cronLogger adapts our logger to cron's Logger interface.
type cronLogger struct {
	log *logger.Logger
}

func (c *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug("cron: %s %v", msg, keysAndValues)
}

func (c *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error("cron: %s: %v %v", msg, err, keysAndValues)
}
