package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func ConnectPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 15 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

// Schema creates the tables the repositories expect. Every statement is
// idempotent so it runs on each startup.
var Schema = []string{
	`CREATE SEQUENCE IF NOT EXISTS appointments_id_seq`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id               BIGINT PRIMARY KEY,
		patient_id       BIGINT NOT NULL,
		patient_name     TEXT NOT NULL,
		patient_phone    TEXT NOT NULL DEFAULT '',
		patient_email    TEXT NOT NULL DEFAULT '',
		session_date     DATE NOT NULL,
		session_time     TIME NOT NULL,
		duration_minutes INT NOT NULL CHECK (duration_minutes > 0),
		type             TEXT NOT NULL,
		modality         TEXT NOT NULL,
		status           TEXT NOT NULL,
		price            NUMERIC(12,2) NOT NULL CHECK (price >= 0),
		payment_status   TEXT NOT NULL,
		payment_id       TEXT,
		notes            TEXT NOT NULL DEFAULT '',
		video_room_id    TEXT,
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS appointments_session_date_idx ON appointments (session_date, session_time)`,
	`CREATE INDEX IF NOT EXISTS appointments_patient_idx ON appointments (patient_id)`,
	`CREATE TABLE IF NOT EXISTS appointment_events (
		id             BIGSERIAL PRIMARY KEY,
		event_type     TEXT NOT NULL,
		appointment_id BIGINT,
		payload        JSONB,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE SEQUENCE IF NOT EXISTS transactions_id_seq`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id             BIGINT PRIMARY KEY,
		type           TEXT NOT NULL,
		category       TEXT NOT NULL,
		description    TEXT NOT NULL,
		amount         NUMERIC(12,2) NOT NULL CHECK (amount > 0),
		tx_date        DATE NOT NULL,
		status         TEXT NOT NULL,
		payment_method TEXT NOT NULL DEFAULT '',
		appointment_id BIGINT,
		patient_id     BIGINT,
		tags           TEXT[] NOT NULL DEFAULT '{}',
		notes          TEXT NOT NULL DEFAULT '',
		recurrence     JSONB,
		receipt_file   TEXT,
		created_at     TIMESTAMPTZ NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_date_idx ON transactions (tx_date)`,
	`CREATE INDEX IF NOT EXISTS transactions_appointment_idx ON transactions (appointment_id)`,
}

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range Schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
