// Package main is the entry point for the stockbi API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"stockbi/internal/app"
	"stockbi/internal/config"
	v1 "stockbi/internal/infrastructure/http/v1"
	"stockbi/internal/infrastructure/http/v1/handlers"
	"stockbi/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("config error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Development(),
		Service:     "server",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting stockbi server", "env", cfg.App.Env, "in_memory", cfg.InMemory())

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Warnw("close failed", "error", err)
		}
	}()

	checks := make(map[string]handlers.Checker, len(application.Checks))
	for name, check := range application.Checks {
		checks[name] = handlers.Checker(check)
	}

	router := v1.NewRouter(v1.RouterConfig{
		Logger:      log,
		Products:    application.Products,
		Ledger:      application.Ledger,
		Engine:      application.Engine,
		Reports:     application.Reports,
		Checks:      checks,
		Development: cfg.Development(),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Infow("server starting", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	log.Info("server stopped")
}
