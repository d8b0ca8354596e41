// Package scheduler drives glanced's periodic work: rotation cycles,
// fallback feed refreshes, and registry snapshots.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps a cron runner with a shared context that is canceled
// on Stop, so in-flight jobs can bail out during shutdown.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a stopped Scheduler. Panicking jobs are recovered and
// logged rather than killing the process.
func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Every registers job to run on the given interval. name is used only
// for error messages. Intervals below one second are rejected: cron's
// @every schedule rounds them up to a second, which would silently run
// the job slower than asked.
func (s *Scheduler) Every(interval time.Duration, name string, job func(context.Context)) error {
	if interval < time.Second {
		return fmt.Errorf("job %s: interval must be at least 1s, got %v", name, interval)
	}
	spec := fmt.Sprintf("@every %s", interval)
	if _, err := s.cron.AddFunc(spec, func() { job(s.ctx) }); err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	return nil
}

// Start begins running registered jobs on their intervals.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels the job context and stops the cron runner, waiting for
// any running job to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}
