package reconciler

import (
	"context"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/booking"
)

// Status is the in-memory payment state shown to the user. It is never
// persisted.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusVerifying Status = "verifying"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
)

// Active reports whether a payment is being taken or checked.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusVerifying
}

func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// View is what the UI renders: the banner, the retry button and whether the
// booking form may be submitted.
type View struct {
	Status      Status       `json:"status"`
	Message     string       `json:"message,omitempty"`
	BookingID   int64        `json:"bookingId,omitempty"`
	BookingKind booking.Kind `json:"bookingKind,omitempty"`
	PaymentID   int64        `json:"paymentId,omitempty"`
	Attempts    int          `json:"attempts"`
	MaxAttempts int          `json:"maxAttempts"`
	CanRetry    bool         `json:"canRetry"`
	CanSubmit   bool         `json:"canSubmit"`
	Err         error        `json:"-"`
}

func (r *Reconciler) Snapshot() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

func (r *Reconciler) viewLocked() View {
	v := View{
		Status:      r.status,
		Message:     r.message,
		Attempts:    r.attempts,
		MaxAttempts: r.cfg.MaxAttempts,
		Err:         r.lastErr,
	}
	if r.record != nil {
		v.BookingID = r.record.BookingID
		v.BookingKind = r.record.BookingKind
		v.PaymentID = r.record.PaymentID
	}
	v.CanRetry = r.record != nil
	v.CanSubmit = !r.status.Active() && r.record == nil
	return v
}

// Subscribe returns a channel that receives the current view and then every
// change. Slow readers only see the latest view. cancel closes the channel.
func (r *Reconciler) Subscribe() (<-chan View, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSub
	r.nextSub++
	ch := make(chan View, 1)
	ch <- r.viewLocked()
	r.subs[id] = ch
	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if c, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(c)
		}
	}
}

func (r *Reconciler) publishLocked() {
	if len(r.subs) == 0 {
		return
	}
	v := r.viewLocked()
	for _, ch := range r.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

// Await blocks until done reports true for a view or ctx ends.
func (r *Reconciler) Await(ctx context.Context, done func(View) bool) (View, error) {
	ch, cancel := r.Subscribe()
	defer cancel()
	var last View
	for {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case v, ok := <-ch:
			if !ok {
				return last, context.Canceled
			}
			last = v
			if done(v) {
				return v, nil
			}
		}
	}
}
