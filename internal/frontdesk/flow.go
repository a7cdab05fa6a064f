// Package frontdesk drives one booking from form submission to an open
// hosted checkout.
package frontdesk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/backend"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/booking"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/paymentstate"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/pricing"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/reconciler"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/pkg/logging"
)

// BookingAPI is the slice of the backend client the flow needs.
type BookingAPI interface {
	Catalog(ctx context.Context, hospitalSelection string) (booking.Catalog, error)
	CreateBooking(ctx context.Context, req *booking.Request) (*booking.Record, error)
	CreateOrder(ctx context.Context, req backend.OrderRequest) (*backend.Order, error)
}

// Payments is the reconciler surface used to start a payment.
type Payments interface {
	Snapshot() reconciler.View
	Begin(ctx context.Context, p reconciler.BeginParams) (reconciler.View, error)
}

// Result describes how far a submission got. Booking is set as soon as the
// backend accepted it, even when a later step failed.
type Result struct {
	Booking *booking.Record
	Quote   pricing.Quote
	Order   *backend.Order
	View    reconciler.View
}

type Flow struct {
	api      BookingAPI
	prices   pricing.Resolver
	payments Payments
	store    paymentstate.Store
	builder  *booking.Builder
	logger   *logging.Logger
	now      func() time.Time
	maxAge   time.Duration
}

func NewFlow(api BookingAPI, prices pricing.Resolver, payments Payments, store paymentstate.Store, logger *logging.Logger) *Flow {
	if logger == nil {
		logger = logging.Default()
	}
	return &Flow{
		api:      api,
		prices:   prices,
		payments: payments,
		store:    store,
		builder:  booking.NewBuilder(),
		logger:   logger,
		now:      time.Now,
		maxAge:   paymentstate.MaxAge,
	}
}

// WithClock replaces the clock used for the staleness check.
func (f *Flow) WithClock(now func() time.Time) *Flow {
	if now != nil {
		f.now = now
	}
	return f
}

// WithMaxAge sets how old a stored record may be before it stops blocking
// new submissions.
func (f *Flow) WithMaxAge(d time.Duration) *Flow {
	if d > 0 {
		f.maxAge = d
	}
	return f
}

// CanSubmit mirrors the disabled state of the booking form's submit button.
func (f *Flow) CanSubmit(ctx context.Context) bool {
	return f.inFlight(ctx) == nil
}

// Submit books, prices, orders and opens checkout. It refuses to start while
// another payment is unresolved so the store never holds two records.
func (f *Flow) Submit(ctx context.Context, form booking.FormValues) (*Result, error) {
	if err := f.inFlight(ctx); err != nil {
		return nil, err
	}

	// Form problems are reported before any backend call.
	if err := f.builder.Validate(form); err != nil {
		return nil, err
	}
	catalog, err := f.api.Catalog(ctx, form.Hospital)
	if err != nil {
		return nil, fmt.Errorf("frontdesk: load catalog: %w", err)
	}
	req, err := f.builder.Build(form, catalog)
	if err != nil {
		return nil, err
	}

	rec, err := f.api.CreateBooking(ctx, req)
	if err != nil {
		return nil, err
	}
	res := &Result{Booking: rec}

	quote, err := f.prices.Quote(ctx, req)
	if err != nil {
		f.orphaned(rec, err)
		return res, fmt.Errorf("frontdesk: price booking %d: %w", rec.ID, err)
	}
	res.Quote = quote

	order, err := f.api.CreateOrder(ctx, backend.OrderRequest{
		BookingID:   rec.ID,
		BookingKind: rec.Kind,
		Amount:      quote.Amount,
		Currency:    quote.Currency,
	})
	if err != nil {
		f.orphaned(rec, err)
		return res, err
	}
	res.Order = order

	view, err := f.payments.Begin(ctx, reconciler.BeginParams{
		BookingID:        rec.ID,
		BookingKind:      rec.Kind,
		PaymentID:        order.PaymentID,
		PaymentSessionID: order.PaymentSessionID,
	})
	res.View = view
	if err != nil {
		return res, err
	}
	f.logger.Info("checkout opened",
		"booking_id", rec.ID,
		"payment_id", order.PaymentID,
		"amount", quote.Amount,
		"currency", quote.Currency,
	)
	return res, nil
}

func (f *Flow) inFlight(ctx context.Context) error {
	if view := f.payments.Snapshot(); !view.CanSubmit {
		return reconciler.ErrPaymentInFlight
	}
	_, err := paymentstate.Load(ctx, f.store, f.now(), f.maxAge)
	switch {
	case err == nil:
		return reconciler.ErrPaymentInFlight
	case errors.Is(err, paymentstate.ErrNotFound), errors.Is(err, paymentstate.ErrStale), errors.Is(err, paymentstate.ErrCorrupt):
		return nil
	default:
		return fmt.Errorf("frontdesk: read payment state: %w", err)
	}
}

func (f *Flow) orphaned(rec *booking.Record, err error) {
	f.logger.Error("booking left pending without a payment order",
		"booking_id", rec.ID,
		"kind", rec.Kind,
		"error", err,
	)
}
