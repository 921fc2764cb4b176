package aggregation

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"stockbi/internal/core/period"
	"stockbi/pkg/logger"
)

// SchedulerConfig configures the periodic run of the job matrix.
type SchedulerConfig struct {
	// Spec is a cron expression with a seconds field, e.g. "0 */15 * * * *".
	Spec string

	Matrix map[Class][]period.Kind

	// ClosePrevious also recomputes the bucket before the current one so
	// late updates land in the period that just ended.
	ClosePrevious bool

	// Timeout bounds a single tick.
	Timeout time.Duration
}

// Scheduler triggers the configured jobs for the period containing now.
type Scheduler struct {
	engine *Engine
	cfg    SchedulerConfig
	cron   *cron.Cron
	now    func() time.Time
	log    *logger.Logger
}

// NewScheduler creates a scheduler; the cron spec is validated here.
func NewScheduler(engine *Engine, cfg SchedulerConfig, log *logger.Logger) (*Scheduler, error) {
	if cfg.Matrix == nil {
		cfg.Matrix = DefaultMatrix()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}

	s := &Scheduler{
		engine: engine,
		cfg:    cfg,
		cron:   cron.New(cron.WithSeconds()),
		now:    time.Now,
		log:    log.WithComponent("scheduler"),
	}
	if _, err := s.cron.AddFunc(cfg.Spec, s.tick); err != nil {
		return nil, fmt.Errorf("parse cron spec %q: %w", cfg.Spec, err)
	}
	return s, nil
}

// Jobs returns what a tick at time now would run.
func (s *Scheduler) Jobs(now time.Time) []Job {
	jobs := JobsFor(s.cfg.Matrix, now)
	if !s.cfg.ClosePrevious {
		return jobs
	}
	for _, j := range JobsFor(s.cfg.Matrix, now) {
		jobs = append(jobs, Job{Class: j.Class, Period: j.Period.Previous()})
	}
	return jobs
}

// RunOnce executes one tick synchronously.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	jobs := s.Jobs(s.now())
	s.log.Infow("aggregation tick", "jobs", len(jobs))
	return s.engine.RunAll(logger.WithLogger(ctx, s.log), jobs)
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()
	if err := s.RunOnce(ctx); err != nil {
		s.log.Errorw("aggregation tick finished with failures", "error", err)
	}
}

// Start launches the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Infow("scheduler started", "spec", s.cfg.Spec)
}

// Stop waits for a running tick to finish or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	s.log.Infow("scheduler stopped")
}
