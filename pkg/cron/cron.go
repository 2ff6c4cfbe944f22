// Package cron runs the periodic background jobs of the client.
package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/botdesk/botdesk/pkg/logger"
)

// Scheduler is a cron-like job scheduler.
type Scheduler struct {
	*cron.Cron
}

// cronLogger adapts zerolog to the cron.Logger interface.
type cronLogger struct {
	logger zerolog.Logger
}

// Info logs routine messages about cron's operation.
func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

// Error logs an error condition.
func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

// NewScheduler returns a new Scheduler. Jobs that are still running when the
// next tick fires are skipped.
func NewScheduler(name string) *Scheduler {
	l := cronLogger{logger.WithComponent("cron." + name)}
	return &Scheduler{
		Cron: cron.New(
			cron.WithLogger(l),
			cron.WithChain(cron.SkipIfStillRunning(l), cron.Recover(l)),
		),
	}
}

// Every registers fn to run at a fixed interval.
func (s *Scheduler) Every(interval time.Duration, fn func()) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("invalid interval: %s", interval)
	}
	return s.AddFunc("@every "+interval.String(), fn)
}

// Shutdown stops the scheduler and waits up to 30 seconds for running jobs.
func (s *Scheduler) Shutdown() {
	ctx, cancel := context.WithTimeout(s.Cron.Stop(), 30*time.Second)
	defer cancel()
	<-ctx.Done()
}
