package frontdesk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/backend"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/booking"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/paymentstate"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/pricing"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/reconciler"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/session"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/pkg/logging"
)

type idleTicker struct{ ch chan time.Time }

func (t idleTicker) Chan() <-chan time.Time { return t.ch }
func (t idleTicker) Stop()                  {}

type recordingOpener struct {
	sessions []string
	err      error
}

func (o *recordingOpener) Open(ctx context.Context, sessionID string) error {
	o.sessions = append(o.sessions, sessionID)
	return o.err
}

type fakeBackend struct {
	catalog  atomic.Int32
	bookings atomic.Int32
	orders   atomic.Int32
	order    map[string]any
	booking  map[string]any
	orderErr bool
}

func (b *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /hospitals", func(w http.ResponseWriter, r *http.Request) {
		b.catalog.Add(1)
		fmt.Fprint(w, `[{"id":3,"name":"Anagha City Hospital"}]`)
	})
	mux.HandleFunc("GET /hospitals/3/doctors", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":7,"name":"Dr. Rao"},{"id":8,"name":"Dr. Iyer"}]`)
	})
	mux.HandleFunc("POST /bookings/appointments", func(w http.ResponseWriter, r *http.Request) {
		b.bookings.Add(1)
		if err := json.NewDecoder(r.Body).Decode(&b.booking); err != nil {
			t.Errorf("decode booking: %v", err)
		}
		fmt.Fprint(w, `{"id":101,"status":"pending"}`)
	})
	mux.HandleFunc("POST /payments/orders", func(w http.ResponseWriter, r *http.Request) {
		b.orders.Add(1)
		if err := json.NewDecoder(r.Body).Decode(&b.order); err != nil {
			t.Errorf("decode order: %v", err)
		}
		if b.orderErr {
			fmt.Fprint(w, `{"paymentId":555}`)
			return
		}
		fmt.Fprint(w, `{"paymentId":555,"paymentSessionId":"sess_abc"}`)
	})
	return mux
}

type fixture struct {
	flow    *Flow
	backend *fakeBackend
	store   *paymentstate.MemoryStore
	opener  *recordingOpener
	rec     *reconciler.Reconciler
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fb := &fakeBackend{}
	srv := httptest.NewServer(fb.handler(t))
	t.Cleanup(srv.Close)

	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	client := backend.NewClient(srv.URL, session.NewStaticToken("token-abc"), logging.Discard())
	store := paymentstate.NewMemoryStore()
	opener := &recordingOpener{}
	rec := reconciler.New(store, client, opener, reconciler.Config{}, logging.Discard()).
		WithClock(func() time.Time { return now }).
		WithTickerFactory(func(time.Duration) reconciler.Ticker { return idleTicker{ch: make(chan time.Time)} })
	t.Cleanup(rec.Unmount)

	flow := NewFlow(client, pricing.NewTableResolver("INR", 500, 20000), rec, store, logging.Discard()).
		WithClock(func() time.Time { return now })
	return &fixture{flow: flow, backend: fb, store: store, opener: opener, rec: rec, now: now}
}

func appointmentForm() booking.FormValues {
	return booking.FormValues{
		Kind:     "appointment",
		Hospital: "3",
		Doctor:   "7",
		Date:     "2024-05-01",
		Time:     "14:30",
	}
}

func TestSubmit_AppointmentOpensCheckout(t *testing.T) {
	fx := newFixture(t)

	res, err := fx.flow.Submit(context.Background(), appointmentForm())
	require.NoError(t, err)
	assert.Equal(t, int64(101), res.Booking.ID)
	assert.Equal(t, int64(555), res.Order.PaymentID)
	assert.Equal(t, reconciler.StatusPending, res.View.Status)

	assert.Equal(t, float64(3), fx.backend.booking["hospitalId"])
	assert.Equal(t, float64(7), fx.backend.booking["doctorId"])
	assert.Equal(t, "2024-05-01", fx.backend.booking["date"])
	assert.Equal(t, "14:30", fx.backend.booking["time"])

	assert.Equal(t, map[string]any{
		"bookingId":   float64(101),
		"bookingKind": "appointment",
		"amount":      float64(500),
		"currency":    "INR",
	}, fx.backend.order)

	assert.Equal(t, []string{"sess_abc"}, fx.opener.sessions)
	stored, err := fx.store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, paymentstate.PendingPayment{
		BookingID:        101,
		BookingKind:      booking.KindAppointment,
		PaymentID:        555,
		PaymentSessionID: "sess_abc",
		CreatedAt:        fx.now,
	}, normalize(*stored))
	assert.False(t, fx.flow.CanSubmit(context.Background()))
}

func normalize(p paymentstate.PendingPayment) paymentstate.PendingPayment {
	p.CreatedAt = p.CreatedAt.UTC()
	return p
}

func TestSubmit_RejectedWhilePaymentInFlight(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.flow.Submit(context.Background(), appointmentForm())
	require.NoError(t, err)

	_, err = fx.flow.Submit(context.Background(), appointmentForm())
	require.ErrorIs(t, err, reconciler.ErrPaymentInFlight)
	assert.Equal(t, int32(1), fx.backend.bookings.Load(), "no second booking is created")
	assert.Equal(t, int32(1), fx.backend.orders.Load())
}

func TestSubmit_RejectedWhenStoreHoldsRecord(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.store.Set(context.Background(), paymentstate.PendingPayment{
		BookingID:        90,
		BookingKind:      booking.KindOperation,
		PaymentID:        44,
		PaymentSessionID: "sess_old",
		CreatedAt:        fx.now.Add(-time.Hour),
	}))

	assert.False(t, fx.flow.CanSubmit(context.Background()))
	_, err := fx.flow.Submit(context.Background(), appointmentForm())
	require.ErrorIs(t, err, reconciler.ErrPaymentInFlight)
	assert.Zero(t, fx.backend.bookings.Load())
}

func TestSubmit_StaleRecordDoesNotBlock(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.store.Set(context.Background(), paymentstate.PendingPayment{
		BookingID:        90,
		BookingKind:      booking.KindOperation,
		PaymentID:        44,
		PaymentSessionID: "sess_old",
		CreatedAt:        fx.now.Add(-25 * time.Hour),
	}))

	_, err := fx.flow.Submit(context.Background(), appointmentForm())
	require.NoError(t, err)
	assert.Equal(t, []string{"sess_abc"}, fx.opener.sessions)
}

func TestSubmit_ValidationNeverCallsBackend(t *testing.T) {
	fx := newFixture(t)
	form := appointmentForm()
	form.Date = "01/05/2024"

	_, err := fx.flow.Submit(context.Background(), form)
	var verr *booking.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Contains(t, verr.Fields, "date")
	assert.Zero(t, fx.backend.catalog.Load())
	assert.Zero(t, fx.backend.bookings.Load())
}

func TestSubmit_ValidationWinsOverMissingSession(t *testing.T) {
	fb := &fakeBackend{}
	srv := httptest.NewServer(fb.handler(t))
	t.Cleanup(srv.Close)

	client := backend.NewClient(srv.URL, session.NewFileStore(t.TempDir()+"/missing.token"), logging.Discard())
	store := paymentstate.NewMemoryStore()
	rec := reconciler.New(store, client, &recordingOpener{}, reconciler.Config{}, logging.Discard())
	t.Cleanup(rec.Unmount)
	flow := NewFlow(client, pricing.NewTableResolver("INR", 500, 20000), rec, store, logging.Discard())

	form := appointmentForm()
	form.Kind = "operation"

	_, err := flow.Submit(context.Background(), form)
	var verr *booking.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Contains(t, verr.Fields, "specialty")
	assert.NotErrorIs(t, err, backend.ErrAuthenticationRequired)
	assert.Zero(t, fb.catalog.Load())
}

func TestSubmit_OrderWithoutSessionLeavesBookingOrphaned(t *testing.T) {
	fx := newFixture(t)
	fx.backend.orderErr = true

	res, err := fx.flow.Submit(context.Background(), appointmentForm())
	require.ErrorIs(t, err, backend.ErrOrderCreationFailed)
	require.NotNil(t, res)
	assert.Equal(t, int64(101), res.Booking.ID)
	assert.Nil(t, res.Order)
	assert.Empty(t, fx.opener.sessions)

	_, err = fx.store.Get(context.Background())
	assert.ErrorIs(t, err, paymentstate.ErrNotFound)
	assert.True(t, fx.flow.CanSubmit(context.Background()))
}
