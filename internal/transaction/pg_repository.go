package transaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

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

const transactionColumns = `
	id, type, category, description, amount::text, to_char(tx_date, 'YYYY-MM-DD'),
	status, payment_method, appointment_id, patient_id, tags, notes,
	recurrence, receipt_file, created_at, updated_at`

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var t Transaction
	var amount string
	var recurrence []byte

	err := row.Scan(
		&t.ID,
		&t.Type,
		&t.Category,
		&t.Description,
		&amount,
		&t.Date,
		&t.Status,
		&t.PaymentMethod,
		&t.AppointmentID,
		&t.PatientID,
		&t.Tags,
		&t.Notes,
		&recurrence,
		&t.ReceiptFile,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if len(recurrence) > 0 {
		var cfg RecurrenceConfig
		if err := json.Unmarshal(recurrence, &cfg); err != nil {
			return nil, fmt.Errorf("decode recurrence of transaction %d: %w", t.ID, err)
		}
		t.Recurrence = &cfg
	}
	if len(t.Tags) == 0 {
		t.Tags = nil
	}
	return &t, nil
}

func encodeRecurrence(cfg *RecurrenceConfig) ([]byte, error) {
	if cfg == nil {
		return nil, nil
	}
	return json.Marshal(cfg)
}

func tagsParam(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func (r *PgRepository) NextID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('transactions_id_seq')`).Scan(&id); err != nil {
		return 0, fmt.Errorf("next transaction id: %w", err)
	}
	return id, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id int64) (*Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

func (r *PgRepository) List(ctx context.Context) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) Insert(ctx context.Context, t Transaction) error {
	recurrence, err := encodeRecurrence(t.Recurrence)
	if err != nil {
		return fmt.Errorf("encode recurrence: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO transactions (
			id, type, category, description, amount, tx_date, status, payment_method,
			appointment_id, patient_id, tags, notes, recurrence, receipt_file, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::date, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		t.ID, t.Type, t.Category, t.Description, t.Amount.String(), t.Date, t.Status, t.PaymentMethod,
		t.AppointmentID, t.PatientID, tagsParam(t.Tags), t.Notes, recurrence, t.ReceiptFile, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *PgRepository) Save(ctx context.Context, t Transaction) error {
	recurrence, err := encodeRecurrence(t.Recurrence)
	if err != nil {
		return fmt.Errorf("encode recurrence: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE transactions
		SET type = $2,
		    category = $3,
		    description = $4,
		    amount = $5::numeric,
		    tx_date = $6::date,
		    status = $7,
		    payment_method = $8,
		    appointment_id = $9,
		    patient_id = $10,
		    tags = $11,
		    notes = $12,
		    recurrence = $13,
		    receipt_file = $14,
		    updated_at = $15
		WHERE id = $1
	`,
		t.ID, t.Type, t.Category, t.Description, t.Amount.String(), t.Date, t.Status, t.PaymentMethod,
		t.AppointmentID, t.PatientID, tagsParam(t.Tags), t.Notes, recurrence, t.ReceiptFile, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *PgRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}
