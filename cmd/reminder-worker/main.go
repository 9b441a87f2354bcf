package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling-billing/internal/app"
	"github.com/hackgods/practice-scheduling-billing/internal/config"
	"github.com/hackgods/practice-scheduling-billing/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.Must(cfg.LogLevel, cfg.LogFormat, "reminder-worker")
	defer func() { _ = log.Sync() }()

	log.Info("reminder worker starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.WorkerInterval),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(rootCtx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	// Run once at startup
	runOnce(rootCtx, a, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, a, log)
		}
	}
}

func runOnce(ctx context.Context, a *app.App, log *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	res, err := a.Reminder(runCtx).Run(runCtx)
	if err != nil {
		log.Error("reminder run failed", zap.Error(err))
		return
	}
	log.Info("reminder run complete",
		zap.Int("reminders", res.Reminders),
		zap.Int("overdue", res.Overdue),
		zap.Duration("took", time.Since(start)),
	)
}
