package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pastelecana/pastelaria/internal/types/order"
	"github.com/pastelecana/pastelaria/internal/types/payment"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(dsn string) (*PostgresStorage, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &PostgresStorage{db: db}

	// проверяем, что БД жива
	if err := s.db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	// создаём таблицы
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStorage) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orders (
            id TEXT PRIMARY KEY,
            payment_id TEXT UNIQUE,
            status TEXT NOT NULL,
            payer_name TEXT NOT NULL,
            payer_email TEXT NOT NULL,
            delivery_address TEXT NOT NULL,
            delivery_number TEXT NOT NULL,
            delivery_neighborhood TEXT NOT NULL,
            delivery_city TEXT NOT NULL,
            delivery_zip TEXT NOT NULL,
            delivery_fee NUMERIC(10,2) NOT NULL,
            subtotal NUMERIC(10,2) NOT NULL,
            total NUMERIC(10,2) NOT NULL,
            payment_method TEXT NOT NULL,
            items_json JSONB NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            settled_at TIMESTAMPTZ
        )`,
		`CREATE TABLE IF NOT EXISTS payment_ledger (
            payment_id TEXT PRIMARY KEY,
            state TEXT NOT NULL,
            outcome TEXT,
            started_at TIMESTAMPTZ NOT NULL,
            finished_at TIMESTAMPTZ
        )`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func (s *PostgresStorage) CreateOrder(ctx context.Context, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	const q = `
        INSERT INTO orders (
            id, payment_id, status,
            payer_name, payer_email,
            delivery_address, delivery_number, delivery_neighborhood, delivery_city, delivery_zip,
            delivery_fee, subtotal, total, payment_method, items_json, created_at, settled_at
        ) VALUES ($1, NULLIF($2,''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err = s.db.ExecContext(ctx, q,
		o.ID, o.PaymentID, o.Status,
		o.Payer.Name, o.Payer.Email,
		o.Delivery.Address, o.Delivery.Number, o.Delivery.Neighborhood, o.Delivery.City, o.Delivery.ZipCode,
		o.DeliveryFee, o.Subtotal, o.Total, o.PaymentMethod, items, o.CreatedAt, o.SettledAt,
	)
	return err
}

const orderColumns = `
        id, COALESCE(payment_id,''), status,
        payer_name, payer_email,
        delivery_address, delivery_number, delivery_neighborhood, delivery_city, delivery_zip,
        delivery_fee, subtotal, total, payment_method, items_json, created_at, settled_at`

func scanOrder(row interface{ Scan(...any) error }) (*order.Order, error) {
	var o order.Order
	var items []byte
	var settledAt sql.NullTime
	if err := row.Scan(
		&o.ID, &o.PaymentID, &o.Status,
		&o.Payer.Name, &o.Payer.Email,
		&o.Delivery.Address, &o.Delivery.Number, &o.Delivery.Neighborhood, &o.Delivery.City, &o.Delivery.ZipCode,
		&o.DeliveryFee, &o.Subtotal, &o.Total, &o.PaymentMethod, &items, &o.CreatedAt, &settledAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	if settledAt.Valid {
		t := settledAt.Time
		o.SettledAt = &t
	}
	return &o, nil
}

func (s *PostgresStorage) FindOrderByID(ctx context.Context, id string) (*order.Order, error) {
	q := `SELECT` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(s.db.QueryRowContext(ctx, q, id))
}

func (s *PostgresStorage) FindOrderByPaymentID(ctx context.Context, paymentID string) (*order.Order, error) {
	q := `SELECT` + orderColumns + ` FROM orders WHERE payment_id = $1`
	return scanOrder(s.db.QueryRowContext(ctx, q, paymentID))
}

// SaveOrder replaces the mutable part of the row in one statement. Callers
// always read-modify-write inside the ledger's exclusive window, so the write
// itself only needs to be atomic, not conditional.
func (s *PostgresStorage) SaveOrder(ctx context.Context, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	const q = `
        UPDATE orders
        SET payment_id = NULLIF($1,''),
            status = $2,
            delivery_fee = $3,
            subtotal = $4,
            total = $5,
            payment_method = $6,
            items_json = $7,
            settled_at = $8
        WHERE id = $9`
	res, err := s.db.ExecContext(ctx, q,
		o.PaymentID, o.Status, o.DeliveryFee, o.Subtotal, o.Total, o.PaymentMethod, items, o.SettledAt, o.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStorage) ListOrders(ctx context.Context) ([]order.Order, error) {
	q := `SELECT` + orderColumns + ` FROM orders ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// AcquirePayment takes the per-payment lock with a single conditional insert.
// A fresh id inserts an in_progress row; a row left behind by a failed run or
// by a non-terminal settlement is re-taken by the DO UPDATE arm; a done or
// in_progress row returns no rows and is classified by the follow-up read.
func (s *PostgresStorage) AcquirePayment(ctx context.Context, paymentID string) (payment.AcquireResult, error) {
	const q = `
        INSERT INTO payment_ledger (payment_id, state, started_at)
        VALUES ($1, 'in_progress', $2)
        ON CONFLICT (payment_id) DO UPDATE
            SET state = 'in_progress', started_at = $2, outcome = NULL, finished_at = NULL
            WHERE payment_ledger.state IN ('failed', 'pending')
        RETURNING state`
	var state string
	err := s.db.QueryRowContext(ctx, q, paymentID, time.Now().UTC()).Scan(&state)
	if err == nil {
		return payment.Acquired, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("acquire %s: %w", paymentID, err)
	}

	const check = `SELECT state FROM payment_ledger WHERE payment_id = $1`
	if err := s.db.QueryRowContext(ctx, check, paymentID).Scan(&state); err != nil {
		return 0, fmt.Errorf("acquire check %s: %w", paymentID, err)
	}
	if state == "done" {
		return payment.AlreadyDone, nil
	}
	return payment.AlreadyInProgress, nil
}

func (s *PostgresStorage) ReleasePayment(ctx context.Context, paymentID string, outcome payment.Outcome) error {
	var state string
	switch outcome {
	case payment.OutcomeDone:
		state = "done"
	case payment.OutcomePending:
		state = "pending"
	default:
		state = "failed"
	}
	const q = `
        UPDATE payment_ledger
        SET state = $1, outcome = $2, finished_at = $3
        WHERE payment_id = $4 AND state = 'in_progress'`
	_, err := s.db.ExecContext(ctx, q, state, outcome, time.Now().UTC(), paymentID)
	return err
}
