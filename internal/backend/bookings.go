package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/booking"
)

// CreateBooking submits a booking request. The backend assigns the id and the
// initial pending status. Failures are returned to the caller untouched and
// never retried, since a retry would create a second booking.
func (c *Client) CreateBooking(ctx context.Context, req *booking.Request) (*booking.Record, error) {
	if req == nil {
		return nil, errors.New("backend: booking request required")
	}
	path, err := bookingPath(req.Kind)
	if err != nil {
		return nil, err
	}

	var rec booking.Record
	if err := c.do(ctx, "POST", path, req, &rec); err != nil {
		return nil, err
	}
	if rec.ID <= 0 {
		return nil, fmt.Errorf("backend: create booking: response missing id")
	}
	rec.Kind = req.Kind
	if rec.Status == "" {
		rec.Status = booking.StatusPending
	}
	if rec.Status != booking.StatusPending {
		c.logger.Warn("new booking not pending", "booking_id", rec.ID, "status", rec.Status)
	}
	c.logger.Info("booking created", "booking_id", rec.ID, "kind", rec.Kind)
	return &rec, nil
}

func bookingPath(kind booking.Kind) (string, error) {
	switch kind {
	case booking.KindAppointment:
		return "/bookings/appointments", nil
	case booking.KindOperation:
		return "/bookings/operations", nil
	default:
		return "", fmt.Errorf("backend: unknown booking kind %q", kind)
	}
}
