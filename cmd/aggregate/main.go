// Package main is a command-line tool to run or backfill aggregations.
//
//	aggregate -class sales -kind month -key 2024-03
//	aggregate -kind day -from 2024-01-01 -to 2024-03-31 [-class product]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"stockbi/internal/app"
	"stockbi/internal/config"
	"stockbi/internal/core/period"
	"stockbi/internal/core/types"
	"stockbi/internal/domain/aggregation"
	"stockbi/pkg/logger"
)

type options struct {
	class string
	kind  string
	key   string
	from  string
	to    string
}

func main() {
	var opts options
	flag.StringVar(&opts.class, "class", "", "entity class (inventory, product, quality, sales, orders); empty runs all")
	flag.StringVar(&opts.kind, "kind", "", "period kind (day, week, month, quarter, year)")
	flag.StringVar(&opts.key, "key", "", "period key, e.g. 2024-03 or 2024-W11")
	flag.StringVar(&opts.from, "from", "", "backfill start date (YYYY-MM-DD)")
	flag.StringVar(&opts.to, "to", "", "backfill end date (YYYY-MM-DD)")
	flag.Parse()

	jobs, err := opts.jobs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "aggregate: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Development(),
		Service:     "aggregate",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := logger.WithLogger(context.Background(), log)
	if cfg.InMemory() {
		log.Warnw("DATABASE_URL is empty; aggregating an empty in-memory store")
	}

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer application.Close()

	log.Infow("running aggregation jobs", "jobs", len(jobs))
	if err := application.Engine.RunAll(ctx, jobs); err != nil {
		log.Errorw("aggregation finished with failures", "error", err)
		_ = application.Close()
		os.Exit(1)
	}
	log.Infow("aggregation finished", "jobs", len(jobs))
}

// jobs resolves the flags: a single period with -key, a range with -from/-to.
func (o options) jobs() ([]aggregation.Job, error) {
	kind, err := period.ParseKind(o.kind)
	if err != nil {
		return nil, fmt.Errorf("-kind: %w", err)
	}

	classes := aggregation.Classes
	if o.class != "" {
		c, err := aggregation.ParseClass(o.class)
		if err != nil {
			return nil, fmt.Errorf("-class: %w", err)
		}
		classes = []aggregation.Class{c}
	}

	switch {
	case o.key != "" && (o.from != "" || o.to != ""):
		return nil, fmt.Errorf("use either -key or -from/-to")

	case o.key != "":
		p, err := period.Parse(kind, o.key)
		if err != nil {
			return nil, fmt.Errorf("-key: %w", err)
		}
		jobs := make([]aggregation.Job, len(classes))
		for i, c := range classes {
			jobs[i] = aggregation.Job{Class: c, Period: p}
		}
		return jobs, nil

	case o.from != "" && o.to != "":
		from, err := types.ParseDate(o.from)
		if err != nil {
			return nil, fmt.Errorf("-from: %w", err)
		}
		to, err := types.ParseDate(o.to)
		if err != nil {
			return nil, fmt.Errorf("-to: %w", err)
		}
		if from.After(to) {
			return nil, fmt.Errorf("-from must not be after -to")
		}
		return aggregation.Backfill(classes, kind, from, to), nil
	}
	return nil, fmt.Errorf("either -key or both -from and -to are required")
}
