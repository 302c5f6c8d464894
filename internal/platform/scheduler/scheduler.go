// Package scheduler runs the crawler's periodic jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobFunc adapts a function into a Job.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (j JobFunc) Name() string                  { return j.JobName }
func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }

var parser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// NextFunc parses schedule the way AddJob does and returns a function giving
// the next activation after a point in time.
func NextFunc(schedule string) (func(time.Time) time.Time, error) {
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", schedule, err)
	}
	return func(now time.Time) time.Time { return sched.Next(now.In(time.UTC)) }, nil
}

// Scheduler manages background jobs. Schedules use six fields (seconds first)
// and are evaluated in UTC. A job whose previous run is still going is skipped.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

// New creates a scheduler whose jobs run under ctx.
func New(ctx context.Context) *Scheduler {
	logger := cronLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(time.UTC),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx: ctx,
	}
}

// AddJob registers a job with a cron schedule, e.g. "0 0 6 * * *" for 06:00 UTC daily.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		slog.Debug("running job", "job", job.Name())
		start := time.Now()

		if err := job.Run(s.ctx); err != nil {
			slog.Error("job failed", "job", job.Name(), "error", err)
			return
		}
		slog.Info("job completed", "job", job.Name(), "elapsed", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("schedule %q for %s: %w", schedule, job.Name(), err)
	}

	slog.Info("job registered", "job", job.Name(), "schedule", schedule)
	return nil
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

// Start starts the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started")
}

// Stop stops scheduling and waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("scheduler stopped")
}

// cronLogger routes cron's internal logging to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
