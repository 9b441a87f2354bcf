package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling-billing/internal/app"
	"github.com/hackgods/practice-scheduling-billing/internal/appointment"
	"github.com/hackgods/practice-scheduling-billing/internal/config"
	"github.com/hackgods/practice-scheduling-billing/internal/logger"
	"github.com/hackgods/practice-scheduling-billing/internal/seed"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.Must(cfg.LogLevel, cfg.LogFormat, "api-server")
	defer func() { _ = log.Sync() }()

	log.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("storage", cfg.StorageBackend),
		zap.Bool("redis", cfg.RedisEnabled),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(rootCtx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	if cfg.SeedDemo && cfg.StorageBackend == config.BackendMemory {
		seedDemo(rootCtx, a, log)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           a.Router(version),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-rootCtx.Done():
	case err := <-errCh:
		if err != nil {
			log.Error("http server failed", zap.Error(err))
		}
	}

	log.Info("shutting down api-server", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

func seedDemo(ctx context.Context, a *app.App, log *zap.Logger) {
	existing, err := a.Appointments.List(ctx, appointment.Filters{}, appointment.DefaultSort)
	if err != nil {
		log.Warn("demo seed skipped", zap.Error(err))
		return
	}
	if len(existing) > 0 {
		return
	}
	_, err = seed.Run(ctx, a.Appointments, a.Transactions, seed.Options{
		Patients:     15,
		Appointments: 60,
		Expenses:     12,
		Around:       time.Now(),
	}, log.Named("seed"))
	if err != nil {
		log.Warn("demo seed failed", zap.Error(err))
	}
}
