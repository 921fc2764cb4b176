package aggregation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"stockbi/internal/core/apperror"
	appctx "stockbi/internal/core/context"
	"stockbi/internal/core/period"
	"stockbi/pkg/logger"
)

var tracer = otel.Tracer("stockbi/aggregation")

// Engine runs aggregation jobs: load, compute, replace.
type Engine struct {
	source      Source
	store       Store
	mode        MarginMode
	concurrency int
	onStored    []func(ctx context.Context, job Job)

	mu    sync.Mutex
	locks map[string]*keyLock
}

// keyLock serializes runs of one job key; refs counts holders and waiters
// so the entry can be dropped once nobody needs it.
type keyLock struct {
	sync.Mutex
	refs int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMarginMode selects the gross margin formula.
func WithMarginMode(mode MarginMode) Option {
	return func(e *Engine) { e.mode = mode }
}

// WithConcurrency bounds how many jobs RunAll executes at once.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithOnStored registers a hook called after a job's rows were written.
func WithOnStored(fn func(ctx context.Context, job Job)) Option {
	return func(e *Engine) { e.onStored = append(e.onStored, fn) }
}

// NewEngine creates a new aggregation engine.
func NewEngine(source Source, store Store, opts ...Option) *Engine {
	e := &Engine{
		source:      source,
		store:       store,
		mode:        MarginWeighted,
		concurrency: 4,
		locks:       make(map[string]*keyLock),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunAggregation resolves the external identifiers and runs the job.
func (e *Engine) RunAggregation(ctx context.Context, periodKind, periodKey, entityClass string) error {
	job, err := NewJob(entityClass, periodKind, periodKey)
	if err != nil {
		return err
	}
	return e.Run(ctx, job)
}

// Run computes and persists one (class, period). Runs of the same job are
// serialized; a failure leaves the previously stored rows untouched.
func (e *Engine) Run(ctx context.Context, job Job) error {
	if !job.Class.Valid() {
		return apperror.NewValidation("unknown entity class").WithDetail("class", string(job.Class))
	}

	ctx = appctx.WithJob(ctx, job.String())
	ctx, span := tracer.Start(ctx, "aggregation.run",
		trace.WithAttributes(
			attribute.String("aggregation.class", string(job.Class)),
			attribute.String("aggregation.period_kind", string(job.Period.Kind)),
			attribute.String("aggregation.period_key", job.Period.Key()),
		))
	defer span.End()

	unlock := e.lock(job.String())
	defer unlock()

	started := time.Now()
	rows, err := e.run(ctx, job)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		wrapped := apperror.NewAggregationCompute(string(job.Class), string(job.Period.Kind), job.Period.Key(), err)
		logger.Error(ctx, "aggregation failed", "error", err)
		return wrapped
	}

	logger.Info(ctx, "aggregation completed",
		"rows", rows,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	for _, fn := range e.onStored {
		fn(ctx, job)
	}
	return nil
}

func (e *Engine) run(ctx context.Context, job Job) (int, error) {
	ds, err := e.source.Load(ctx, job.Class, job.Period)
	if err != nil {
		return 0, fmt.Errorf("load dataset: %w", err)
	}
	rows, err := Compute(job, ds, e.mode)
	if err != nil {
		return 0, err
	}
	if err := e.store.ReplacePeriod(ctx, job.Class, job.Period, rows); err != nil {
		return 0, fmt.Errorf("replace period: %w", err)
	}
	return len(rows), nil
}

func (e *Engine) lock(key string) func() {
	e.mu.Lock()
	l, ok := e.locks[key]
	if !ok {
		l = &keyLock{}
		e.locks[key] = l
	}
	l.refs++
	e.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		e.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, key)
		}
		e.mu.Unlock()
	}
}

// RunAll runs jobs concurrently. Every job runs even when others fail;
// the failures are combined into the returned error.
func (e *Engine) RunAll(ctx context.Context, jobs []Job) error {
	var (
		mu   sync.Mutex
		errs error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if err := e.Run(gctx, job); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// JobsFor expands a (class, kinds) matrix into the jobs whose period
// contains date.
func JobsFor(matrix map[Class][]period.Kind, date time.Time) []Job {
	var jobs []Job
	for _, class := range Classes {
		for _, kind := range matrix[class] {
			jobs = append(jobs, Job{Class: class, Period: period.Containing(kind, date)})
		}
	}
	return jobs
}

// Backfill builds the jobs covering [from, to] for the given classes and kind.
func Backfill(classes []Class, kind period.Kind, from, to time.Time) []Job {
	var jobs []Job
	for _, p := range period.Range(kind, from, to) {
		for _, class := range classes {
			jobs = append(jobs, Job{Class: class, Period: p})
		}
	}
	return jobs
}
