package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `
	id, patient_id, patient_name, patient_phone, patient_email,
	to_char(session_date, 'YYYY-MM-DD'), to_char(session_time, 'HH24:MI'),
	duration_minutes, type, modality, status, price::text, payment_status,
	payment_id, notes, video_room_id, created_at, updated_at`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var price string

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.Patient.Name,
		&a.Patient.Phone,
		&a.Patient.Email,
		&a.Date,
		&a.Time,
		&a.Duration,
		&a.Type,
		&a.Modality,
		&a.Status,
		&price,
		&a.PaymentStatus,
		&a.PaymentID,
		&a.Notes,
		&a.VideoRoomID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	return &a, nil
}

// Interface methods

func (r *PgRepository) NextID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('appointments_id_seq')`).Scan(&id); err != nil {
		return 0, fmt.Errorf("next appointment id: %w", err)
	}
	return id, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

func (r *PgRepository) List(ctx context.Context) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+appointmentColumns+` FROM appointments ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) Insert(ctx context.Context, a Appointment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointments (
			id, patient_id, patient_name, patient_phone, patient_email,
			session_date, session_time, duration_minutes, type, modality, status,
			price, payment_status, payment_id, notes, video_room_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6::date, $7::time, $8, $9, $10, $11, $12::numeric, $13, $14, $15, $16, $17, $18)
	`,
		a.ID, a.PatientID, a.Patient.Name, a.Patient.Phone, a.Patient.Email,
		a.Date, a.Time, a.Duration, a.Type, a.Modality, a.Status,
		a.Price.String(), a.PaymentStatus, a.PaymentID, a.Notes, a.VideoRoomID, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) Save(ctx context.Context, a Appointment) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET patient_id = $2,
		    patient_name = $3,
		    patient_phone = $4,
		    patient_email = $5,
		    session_date = $6::date,
		    session_time = $7::time,
		    duration_minutes = $8,
		    type = $9,
		    modality = $10,
		    status = $11,
		    price = $12::numeric,
		    payment_status = $13,
		    payment_id = $14,
		    notes = $15,
		    video_room_id = $16,
		    updated_at = $17
		WHERE id = $1
	`,
		a.ID, a.PatientID, a.Patient.Name, a.Patient.Phone, a.Patient.Email,
		a.Date, a.Time, a.Duration, a.Type, a.Modality, a.Status,
		a.Price.String(), a.PaymentStatus, a.PaymentID, a.Notes, a.VideoRoomID, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointment_events (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
