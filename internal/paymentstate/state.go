// Package paymentstate persists the single in-flight payment reconciliation
// record so it survives reloads, restarts and the hosted-checkout redirect.
package paymentstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/booking"
)

// DefaultKey is the fixed namespace the record is stored under.
const DefaultKey = "anagha.pendingPayment"

// MaxAge is how long a record stays resumable. Older records are abandoned.
const MaxAge = 24 * time.Hour

var (
	// ErrNotFound means no record is stored: the reconciler is idle.
	ErrNotFound = errors.New("paymentstate: no pending payment")
	// ErrStale means a record older than MaxAge was found and discarded.
	ErrStale = errors.New("paymentstate: pending payment expired")
	// ErrCorrupt means the stored bytes could not be decoded. Load discards it.
	ErrCorrupt = errors.New("paymentstate: pending payment unreadable")
)

// PendingPayment is the reconciliation record for one booking's payment.
type PendingPayment struct {
	BookingID   int64
	BookingKind booking.Kind
	// PaymentID is the only key used for status queries.
	PaymentID int64
	// PaymentSessionID opens hosted checkout once and is never used for status.
	PaymentSessionID string
	CreatedAt        time.Time
}

// Age of the record at now.
func (p PendingPayment) Age(now time.Time) time.Duration {
	return now.Sub(p.CreatedAt)
}

// Stale reports whether the record is older than maxAge at now.
func (p PendingPayment) Stale(now time.Time, maxAge time.Duration) bool {
	return p.Age(now) > maxAge
}

func (p PendingPayment) validate() error {
	switch {
	case p.BookingID <= 0:
		return errors.New("booking id required")
	case !p.BookingKind.Valid():
		return fmt.Errorf("unknown booking kind %q", p.BookingKind)
	case p.PaymentID <= 0:
		return errors.New("payment id required")
	case strings.TrimSpace(p.PaymentSessionID) == "":
		return errors.New("payment session id required")
	case p.CreatedAt.IsZero():
		return errors.New("timestamp required")
	}
	return nil
}

// wireRecord is the persisted JSON layout shared by every backend.
type wireRecord struct {
	BookingID        int64  `json:"bookingId"`
	BookingKind      string `json:"bookingKind"`
	PaymentID        int64  `json:"paymentId"`
	PaymentSessionID string `json:"paymentSessionId"`
	Timestamp        int64  `json:"timestamp"`
}

// Encode renders p in the persisted JSON layout (timestamp in epoch ms).
func Encode(p PendingPayment) ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("paymentstate: invalid record: %w", err)
	}
	return json.Marshal(wireRecord{
		BookingID:        p.BookingID,
		BookingKind:      string(p.BookingKind),
		PaymentID:        p.PaymentID,
		PaymentSessionID: p.PaymentSessionID,
		Timestamp:        p.CreatedAt.UnixMilli(),
	})
}

// Decode parses the persisted JSON layout. Any malformed or incomplete record
// yields ErrCorrupt.
func Decode(raw []byte) (*PendingPayment, error) {
	var w wireRecord
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	p := PendingPayment{
		BookingID:        w.BookingID,
		BookingKind:      booking.Kind(w.BookingKind),
		PaymentID:        w.PaymentID,
		PaymentSessionID: w.PaymentSessionID,
	}
	if w.Timestamp > 0 {
		p.CreatedAt = time.UnixMilli(w.Timestamp)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &p, nil
}

// Store is a single-slot durable key-value store. Get returns ErrNotFound when
// the slot is empty. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context) (*PendingPayment, error)
	Set(ctx context.Context, p PendingPayment) error
	Clear(ctx context.Context) error
}

// Claimer is implemented by stores that can write the slot only when it is
// empty, atomically with respect to other processes sharing the store.
type Claimer interface {
	SetIfAbsent(ctx context.Context, p PendingPayment) (bool, error)
}

// Load reads the record and applies the staleness rule: records older than
// maxAge, and unreadable records, are cleared and reported as ErrStale or
// ErrCorrupt without being returned.
func Load(ctx context.Context, store Store, now time.Time, maxAge time.Duration) (*PendingPayment, error) {
	if maxAge <= 0 {
		maxAge = MaxAge
	}
	p, err := store.Get(ctx)
	if errors.Is(err, ErrCorrupt) {
		if clearErr := store.Clear(ctx); clearErr != nil {
			return nil, fmt.Errorf("paymentstate: clear unreadable record: %w", clearErr)
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if p.Stale(now, maxAge) {
		if err := store.Clear(ctx); err != nil {
			return nil, fmt.Errorf("paymentstate: clear stale record: %w", err)
		}
		return nil, ErrStale
	}
	return p, nil
}

// Claim writes p only when the slot is empty. It prefers the store's atomic
// SetIfAbsent and falls back to read-then-write.
func Claim(ctx context.Context, store Store, p PendingPayment) (bool, error) {
	if c, ok := store.(Claimer); ok {
		return c.SetIfAbsent(ctx, p)
	}
	if _, err := store.Get(ctx); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if err := store.Set(ctx, p); err != nil {
		return false, err
	}
	return true, nil
}
