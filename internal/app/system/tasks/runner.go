// internal/app/system/tasks/runner.go
package tasks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a named unit of work run periodically by a Runner.
type Job struct {
	Name     string
	Interval time.Duration
	// Timeout bounds one run. Defaults to the interval.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Runner runs each registered job on its own ticker until stopped.
type Runner struct {
	log    *zap.Logger
	jobs   []Job
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewRunner creates a Runner for jobs.
func NewRunner(logger *zap.Logger, jobs ...Job) *Runner {
	return &Runner{
		log:    logger,
		jobs:   jobs,
		stopCh: make(chan struct{}),
	}
}

// Start launches one goroutine per job.
func (r *Runner) Start() {
	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.loop(job)
		r.log.Info("job scheduled",
			zap.String("job", job.Name),
			zap.Duration("interval", job.Interval))
	}
}

// Stop signals every job to stop and waits for running ones to finish.
func (r *Runner) Stop() {
	close(r.stopCh)
	r.wg.Wait()
	r.log.Info("job runner stopped")
}

func (r *Runner) loop(job Job) {
	defer r.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.RunOnce(job)
		}
	}
}

// RunOnce runs job a single time with its timeout, logging any error or
// panic instead of propagating it.
func (r *Runner) RunOnce(job Job) {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = job.Interval
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			r.log.Error("job panicked", zap.String("job", job.Name), zap.Any("panic", p))
		}
	}()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		r.log.Error("job failed",
			zap.String("job", job.Name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
	}
}
