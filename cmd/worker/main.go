// Package main is the entry point for the stockbi aggregation worker.
// It runs the configured job matrix on a cron schedule.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockbi/internal/app"
	"stockbi/internal/config"
	"stockbi/pkg/logger"
)

func main() {
	once := flag.Bool("once", false, "run a single tick and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("config error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Development(),
		Service:     "worker",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log))
	defer cancel()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Warnw("close failed", "error", err)
		}
	}()

	scheduler, err := application.Scheduler()
	if err != nil {
		log.Fatalw("invalid schedule", "error", err)
	}

	if *once {
		tickCtx, tickCancel := context.WithTimeout(ctx, cfg.Aggregation.Timeout)
		defer tickCancel()
		if err := scheduler.RunOnce(tickCtx); err != nil {
			log.Errorw("tick finished with failures", "error", err)
			os.Exit(1)
		}
		return
	}

	scheduler.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	scheduler.Stop(stopCtx)

	log.Info("worker stopped")
}
