package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/booking"
)

// OrderRequest asks the backend for a payment order against one pending booking.
type OrderRequest struct {
	BookingID   int64        `json:"bookingId"`
	BookingKind booking.Kind `json:"bookingKind"`
	// Amount is in whole currency units, as the backend expects.
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Order identifies a server-side payment order and its hosted checkout session.
type Order struct {
	PaymentID        int64  `json:"paymentId"`
	PaymentSessionID string `json:"paymentSessionId"`
}

// CreateOrder creates a new payment order. Each call creates a new order;
// callers must not call it twice for a booking that already has a pending
// payment record.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.BookingID <= 0 {
		return nil, fmt.Errorf("backend: create order: booking id required")
	}
	if !req.BookingKind.Valid() {
		return nil, fmt.Errorf("backend: create order: unknown booking kind %q", req.BookingKind)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("backend: create order: amount must be positive")
	}
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))

	var order Order
	if err := c.do(ctx, "POST", "/payments/orders", req, &order); err != nil {
		return nil, err
	}
	if strings.TrimSpace(order.PaymentSessionID) == "" {
		return nil, fmt.Errorf("%w: response missing payment session id", ErrOrderCreationFailed)
	}
	if order.PaymentID <= 0 {
		return nil, fmt.Errorf("%w: response missing payment id", ErrOrderCreationFailed)
	}
	c.logger.Info("payment order created",
		"booking_id", req.BookingID,
		"payment_id", order.PaymentID,
		"amount", req.Amount,
		"currency", req.Currency,
	)
	return &order, nil
}
