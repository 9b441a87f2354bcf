// Package app wires the stores, collaborators and backends selected by the
// configuration. The command entry points share it.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling-billing/internal/api"
	"github.com/hackgods/practice-scheduling-billing/internal/appointment"
	"github.com/hackgods/practice-scheduling-billing/internal/billing"
	"github.com/hackgods/practice-scheduling-billing/internal/config"
	"github.com/hackgods/practice-scheduling-billing/internal/db"
	"github.com/hackgods/practice-scheduling-billing/internal/lock"
	"github.com/hackgods/practice-scheduling-billing/internal/notification"
	"github.com/hackgods/practice-scheduling-billing/internal/payment"
	redisclient "github.com/hackgods/practice-scheduling-billing/internal/redis"
	"github.com/hackgods/practice-scheduling-billing/internal/settings"
	"github.com/hackgods/practice-scheduling-billing/internal/storage"
	"github.com/hackgods/practice-scheduling-billing/internal/transaction"
)

type App struct {
	Config        config.Config
	Logger        *zap.Logger
	Appointments  *appointment.Store
	Transactions  *transaction.Store
	Notifications *notification.Center
	Settings      *settings.Store
	Billing       *billing.Service
	Gateway       payment.Gateway
	Checks        []api.Check

	pg  *pgxpool.Pool
	rdb *redis.Client
}

// New connects the configured backends. Postgres is used when the storage
// backend says so, Redis for locks and persisted client state when enabled;
// otherwise everything stays in process.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	var (
		apptRepo appointment.Repository
		txRepo   transaction.Repository
		locker   lock.Locker = lock.NewKeyed()
		kv       storage.KV  = storage.NewMemory()
	)

	switch cfg.StorageBackend {
	case config.BackendPostgres:
		pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("postgres connection: %w", err)
		}
		if err := db.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		a.pg = pool
		a.Checks = append(a.Checks, api.Check{Name: "postgres", Required: true, Ping: pool.Ping})
		apptRepo = appointment.NewPgRepository(pool)
		txRepo = transaction.NewPgRepository(pool)
		logger.Info("connected to Postgres")
	default:
		apptRepo = appointment.NewMemoryRepository(cfg.SimulatedLatency)
		txRepo = transaction.NewMemoryRepository(cfg.SimulatedLatency)
		logger.Info("using in-memory repositories", zap.Duration("latency", cfg.SimulatedLatency))
	}

	if cfg.RedisEnabled {
		rdb, err := redisclient.NewRedisClient(ctx, redisclient.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("redis connection: %w", err)
		}
		a.rdb = rdb
		a.Checks = append(a.Checks, api.Check{Name: "redis", Ping: redisclient.Ping(rdb)})
		locker = redisclient.NewRedisRecordLocker(rdb, cfg.LockTTL)
		kv = redisclient.NewKVStore(rdb, cfg.RedisPrefix)
		logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))
	}

	if cfg.PaymentURL != "" {
		a.Gateway = payment.NewHTTPGateway(cfg.PaymentURL, cfg.PaymentKey, logger.Named("payment"))
	} else {
		a.Gateway = payment.NewSimulated(cfg.SimulatedLatency, logger.Named("payment"))
	}

	a.Notifications = notification.NewCenter(kv,
		notification.WithLocker(locker),
		notification.WithLogger(logger.Named("notification")),
	)
	a.Appointments = appointment.NewStore(apptRepo,
		appointment.WithLocker(locker),
		appointment.WithEventSink(notification.NewEventSink(a.Notifications, logger.Named("notification"))),
		appointment.WithLogger(logger.Named("appointment")),
	)
	a.Transactions = transaction.NewStore(txRepo,
		transaction.WithLocker(locker),
		transaction.WithLogger(logger.Named("transaction")),
	)
	a.Settings = settings.NewStore(kv, cfg.Currency, logger.Named("settings"))
	a.Billing = billing.NewService(a.Appointments, a.Transactions, a.Gateway, cfg.Currency,
		billing.WithNotifier(a.Notifications),
		billing.WithLocker(locker),
		billing.WithLogger(logger.Named("billing")),
	)
	return a, nil
}

// Router builds the HTTP handler over the wired stores.
func (a *App) Router(version string) http.Handler {
	return api.NewRouter(api.RouterConfig{
		Appointments:  a.Appointments,
		Transactions:  a.Transactions,
		Billing:       a.Billing,
		Notifications: a.Notifications,
		Settings:      a.Settings,
		Checks:        a.Checks,
		Logger:        a.Logger.Named("http"),
		Env:           a.Config.Env,
		Version:       version,
	})
}

// Reminder builds the reminder job with the lead time from the saved
// settings, falling back to the configured one.
func (a *App) Reminder(ctx context.Context) *notification.Reminder {
	lead := a.Config.ReminderLeadTime
	if s, err := a.Settings.Get(ctx); err == nil && s.ReminderLeadHours > 0 {
		lead = time.Duration(s.ReminderLeadHours) * time.Hour
	}
	return notification.NewReminder(a.Notifications, a.Appointments, lead, a.Logger.Named("reminder"))
}

func (a *App) Close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.Logger.Warn("error closing redis", zap.Error(err))
		}
	}
	if a.pg != nil {
		a.pg.Close()
	}
}
