package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling-billing/internal/app"
	"github.com/hackgods/practice-scheduling-billing/internal/config"
	"github.com/hackgods/practice-scheduling-billing/internal/logger"
	"github.com/hackgods/practice-scheduling-billing/internal/seed"
)

func main() {
	patients := flag.Int("patients", 40, "number of distinct patients")
	appointments := flag.Int("appointments", 300, "appointments to book")
	expenses := flag.Int("expenses", 30, "expense transactions to record")
	fakerSeed := flag.Uint64("seed", 0, "faker seed, 0 for random")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.Must(cfg.LogLevel, cfg.LogFormat, "seed")
	defer func() { _ = log.Sync() }()

	if cfg.StorageBackend != config.BackendPostgres {
		log.Fatal("seed writes to Postgres; set STORAGE_BACKEND=postgres")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	res, err := seed.Run(ctx, a.Appointments, a.Transactions, seed.Options{
		Patients:     *patients,
		Appointments: *appointments,
		Expenses:     *expenses,
		Around:       time.Now(),
		Seed:         *fakerSeed,
	}, log)
	if err != nil {
		log.Fatal("seed failed", zap.Error(err),
			zap.Int("appointments", res.Appointments),
			zap.Int("transactions", res.Transactions),
		)
	}
}
