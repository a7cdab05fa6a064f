package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/booking"
)

// ErrNoPrice means no amount is configured for the requested booking.
var ErrNoPrice = errors.New("pricing: no price configured")

// Quote is the amount charged for a booking, in whole currency units.
type Quote struct {
	Amount   int64
	Currency string
}

// Resolver prices a booking request before the payment order is created.
type Resolver interface {
	Quote(ctx context.Context, req *booking.Request) (Quote, error)
}

// TableResolver prices bookings from static configuration: a default per kind
// and optional per-hospital overrides.
type TableResolver struct {
	currency  string
	defaults  map[booking.Kind]int64
	overrides map[int64]map[booking.Kind]int64
}

func NewTableResolver(currency string, appointmentFee, operationFee int64) *TableResolver {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "INR"
	}
	defaults := map[booking.Kind]int64{}
	if appointmentFee > 0 {
		defaults[booking.KindAppointment] = appointmentFee
	}
	if operationFee > 0 {
		defaults[booking.KindOperation] = operationFee
	}
	return &TableResolver{
		currency:  currency,
		defaults:  defaults,
		overrides: map[int64]map[booking.Kind]int64{},
	}
}

// WithHospitalFeesJSON parses overrides shaped like
// {"3": {"appointment": 700, "operation": 25000}}. Empty input is a no-op.
func (r *TableResolver) WithHospitalFeesJSON(raw string) (*TableResolver, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return r, nil
	}
	var parsed map[string]map[string]int64
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("pricing: parse hospital fees: %w", err)
	}
	for hospital, fees := range parsed {
		id, err := strconv.ParseInt(strings.TrimSpace(hospital), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("pricing: hospital id %q: %w", hospital, err)
		}
		for kindStr, amount := range fees {
			kind, err := booking.ParseKind(kindStr)
			if err != nil {
				return nil, fmt.Errorf("pricing: hospital %d: %w", id, err)
			}
			if amount <= 0 {
				return nil, fmt.Errorf("pricing: hospital %d %s fee must be positive", id, kind)
			}
			if r.overrides[id] == nil {
				r.overrides[id] = map[booking.Kind]int64{}
			}
			r.overrides[id][kind] = amount
		}
	}
	return r, nil
}

func (r *TableResolver) Quote(ctx context.Context, req *booking.Request) (Quote, error) {
	if req == nil {
		return Quote{}, errors.New("pricing: request required")
	}
	if fees, ok := r.overrides[req.HospitalID]; ok {
		if amount, ok := fees[req.Kind]; ok {
			return Quote{Amount: amount, Currency: r.currency}, nil
		}
	}
	if amount, ok := r.defaults[req.Kind]; ok {
		return Quote{Amount: amount, Currency: r.currency}, nil
	}
	return Quote{}, fmt.Errorf("%w: %s at hospital %d", ErrNoPrice, req.Kind, req.HospitalID)
}
