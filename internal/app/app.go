// Package app wires stores, services and the aggregation engine from
// configuration. The server, worker and aggregate commands share it.
package app

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"stockbi/internal/config"
	"stockbi/internal/core/tx"
	"stockbi/internal/domain/aggregation"
	"stockbi/internal/domain/catalog/product"
	"stockbi/internal/domain/ledger"
	"stockbi/internal/domain/reports"
	"stockbi/internal/infrastructure/cache"
	"stockbi/internal/infrastructure/storage/memory"
	"stockbi/internal/infrastructure/storage/postgres"
	"stockbi/internal/infrastructure/storage/postgres/analytics_repo"
	"stockbi/internal/infrastructure/storage/postgres/catalog_repo"
	"stockbi/internal/infrastructure/storage/postgres/ledger_repo"
	"stockbi/internal/infrastructure/storage/sqlite"
	"stockbi/pkg/logger"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// App holds the wired services.
type App struct {
	Config *config.Config
	Log    *logger.Logger

	Products *product.Service
	Ledger   *ledger.Service
	Engine   *aggregation.Engine
	Reports  *reports.Service

	// Checks are keyed by dependency name.
	Checks map[string]Check

	closers []closer
}

type closer struct {
	name string
	fn   func() error
}

type operational struct {
	txManager tx.ReadOnlyManager
	products  product.Repository
	ledger    ledger.Repository
}

// New connects every configured store, applies migrations and builds the
// services. Call Close when done, also after an error.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (a *App, err error) {
	a = &App{
		Config: cfg,
		Log:    log,
		Checks: make(map[string]Check),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	ops, err := a.openOperational(ctx)
	if err != nil {
		return nil, err
	}
	store, err := a.openAnalytics(ctx)
	if err != nil {
		return nil, err
	}
	reportCache, err := a.openCache(ctx)
	if err != nil {
		return nil, err
	}

	a.Products = product.NewService(ops.products, ops.txManager)
	a.Ledger = ledger.NewService(ops.ledger, a.Products, ops.txManager)
	a.Reports = reports.NewService(store, reportCache, cfg.Redis.TTL)

	source := aggregation.NewRepositorySource(ops.products, ops.ledger, ops.txManager)
	a.Engine = aggregation.NewEngine(source, store,
		aggregation.WithMarginMode(cfg.MarginMode()),
		aggregation.WithConcurrency(cfg.Aggregation.Concurrency),
		aggregation.WithOnStored(a.Reports.Invalidate),
	)
	return a, nil
}

func (a *App) openOperational(ctx context.Context) (operational, error) {
	cfg := a.Config
	if cfg.InMemory() {
		a.Log.Warnw("DATABASE_URL is empty, operational data is kept in memory")
		db := memory.NewDB()
		return operational{
			txManager: memory.NewTxManager(db),
			products:  memory.NewProductRepo(db),
			ledger:    memory.NewLedgerRepo(db),
		}, nil
	}

	pool, err := a.openPool(ctx, "operational", cfg.OperationalDB.URL, postgres.SchemaOperational)
	if err != nil {
		return operational{}, err
	}
	txm := postgres.NewTxManager(pool, a.txOptions())
	return operational{
		txManager: txm,
		products:  catalog_repo.NewProductRepo(txm),
		ledger:    ledger_repo.NewTransactionRepo(txm),
	}, nil
}

func (a *App) openAnalytics(ctx context.Context) (aggregation.Store, error) {
	cfg := a.Config
	switch {
	case cfg.AnalyticsDB.Driver == config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.AnalyticsDB.SQLiteDSN)
		if err != nil {
			return nil, fmt.Errorf("open analytics sqlite: %w", err)
		}
		a.onClose("analytics_sqlite", store.Close)
		a.Checks["analytics_db"] = store.Ping
		return store, nil

	case cfg.AnalyticsURL() == "":
		return memory.NewAnalyticsStore(), nil
	}

	pool, err := a.openPool(ctx, "analytics", cfg.AnalyticsURL(), postgres.SchemaAnalytics)
	if err != nil {
		return nil, err
	}
	return analytics_repo.NewRowStore(postgres.NewTxManager(pool, a.txOptions())), nil
}

func (a *App) openCache(ctx context.Context) (reports.Cache, error) {
	cfg := a.Config.Redis
	if cfg.URL == "" {
		return reports.NoopCache{}, nil
	}

	client, err := cache.NewClient(ctx, cache.Config{
		URL:      cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return nil, err
	}
	c := cache.NewRedisCache(client, cfg.Prefix)
	a.onClose("redis", c.Close)
	a.Checks["redis"] = c.Ping
	return c, nil
}

func (a *App) openPool(ctx context.Context, name, dsn string, schema postgres.Schema) (*postgres.Pool, error) {
	poolCfg := postgres.DefaultPoolConfig(dsn)
	poolCfg.ApplicationName = a.Config.App.Name + "-" + name
	poolCfg.MaxConns = a.Config.OperationalDB.MaxConns
	poolCfg.MinConns = a.Config.OperationalDB.MinConns

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect %s database: %w", name, err)
	}
	a.onClose(name+"_db", func() error {
		pool.Close()
		return nil
	})
	a.Checks[name+"_db"] = pool.Ping

	if err := postgres.Migrate(ctx, pool, schema); err != nil {
		return nil, err
	}
	a.Log.Infow("database ready", "name", name)
	return pool, nil
}

func (a *App) txOptions() postgres.TxOptions {
	opts := postgres.DefaultTxOptions()
	opts.StatementTimeout = a.Config.OperationalDB.StatementTimeout
	opts.LockTimeout = a.Config.OperationalDB.LockTimeout
	return opts
}

func (a *App) onClose(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Scheduler builds the cron scheduler for the configured job matrix.
func (a *App) Scheduler() (*aggregation.Scheduler, error) {
	return aggregation.NewScheduler(a.Engine, aggregation.SchedulerConfig{
		Spec:          a.Config.Aggregation.Schedule,
		Matrix:        a.Config.Matrix(),
		ClosePrevious: a.Config.Aggregation.ClosePrevious,
		Timeout:       a.Config.Aggregation.Timeout,
	}, a.Log)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errs
}
