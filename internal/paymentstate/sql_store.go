package paymentstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/booking"
)

// SQLStore keeps the record as one row of pending_payments keyed by namespace.
// Queries use postgres placeholders; the pgx stdlib driver is registered by
// the binary.
type SQLStore struct {
	db  *sql.DB
	key string
}

func NewSQLStore(db *sql.DB, key string) *SQLStore {
	if db == nil {
		panic("paymentstate: sql db required")
	}
	if key == "" {
		key = DefaultKey
	}
	return &SQLStore{db: db, key: key}
}

const (
	selectPendingSQL = `SELECT booking_id, booking_kind, payment_id, payment_session_id, created_at_ms
FROM pending_payments WHERE namespace = $1`
	upsertPendingSQL = `INSERT INTO pending_payments (namespace, booking_id, booking_kind, payment_id, payment_session_id, created_at_ms)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (namespace) DO UPDATE SET
  booking_id = EXCLUDED.booking_id,
  booking_kind = EXCLUDED.booking_kind,
  payment_id = EXCLUDED.payment_id,
  payment_session_id = EXCLUDED.payment_session_id,
  created_at_ms = EXCLUDED.created_at_ms`
	insertPendingSQL = `INSERT INTO pending_payments (namespace, booking_id, booking_kind, payment_id, payment_session_id, created_at_ms)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (namespace) DO NOTHING`
	deletePendingSQL = `DELETE FROM pending_payments WHERE namespace = $1`
)

func (s *SQLStore) Get(ctx context.Context) (*PendingPayment, error) {
	var (
		p         PendingPayment
		kind      string
		createdMs int64
	)
	err := s.db.QueryRowContext(ctx, selectPendingSQL, s.key).Scan(
		&p.BookingID, &kind, &p.PaymentID, &p.PaymentSessionID, &createdMs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("paymentstate: select pending payment: %w", err)
	}
	p.BookingKind = booking.Kind(kind)
	if createdMs > 0 {
		p.CreatedAt = time.UnixMilli(createdMs)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &p, nil
}

func (s *SQLStore) Set(ctx context.Context, p PendingPayment) error {
	if err := p.validate(); err != nil {
		return fmt.Errorf("paymentstate: invalid record: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, upsertPendingSQL, s.args(p)...); err != nil {
		return fmt.Errorf("paymentstate: upsert pending payment: %w", err)
	}
	return nil
}

func (s *SQLStore) SetIfAbsent(ctx context.Context, p PendingPayment) (bool, error) {
	if err := p.validate(); err != nil {
		return false, fmt.Errorf("paymentstate: invalid record: %w", err)
	}
	res, err := s.db.ExecContext(ctx, insertPendingSQL, s.args(p)...)
	if err != nil {
		return false, fmt.Errorf("paymentstate: insert pending payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("paymentstate: rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *SQLStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, deletePendingSQL, s.key); err != nil {
		return fmt.Errorf("paymentstate: delete pending payment: %w", err)
	}
	return nil
}

func (s *SQLStore) args(p PendingPayment) []any {
	return []any{s.key, p.BookingID, string(p.BookingKind), p.PaymentID, p.PaymentSessionID, p.CreatedAt.UnixMilli()}
}
