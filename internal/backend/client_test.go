package backend

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

	"github.com/golang-jwt/jwt/v5"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/booking"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/session"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/pkg/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *session.StaticToken) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	tokens := session.NewStaticToken("token-abc")
	return NewClient(srv.URL+"/", tokens, logging.Discard()), tokens
}

func TestCreateBooking_Appointment(t *testing.T) {
	var gotBody map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/bookings/appointments" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-abc" {
			t.Errorf("expected bearer token, got %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Errorf("expected X-Request-ID header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":101,"status":"pending","date":"2024-05-01"}`)
	})

	rec, err := client.CreateBooking(context.Background(), &booking.Request{
		Kind:       booking.KindAppointment,
		HospitalID: 3,
		DoctorID:   7,
		Date:       "2024-05-01",
		Time:       "14:30",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if rec.ID != 101 || rec.Status != booking.StatusPending || rec.Kind != booking.KindAppointment {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if gotBody["doctorId"] != float64(7) || gotBody["hospitalId"] != float64(3) {
		t.Fatalf("unexpected body: %#v", gotBody)
	}
	if _, ok := gotBody["specialty"]; ok {
		t.Fatalf("appointment body must not carry specialty")
	}
}

func TestCreateBooking_OperationPath(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bookings/operations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"id":202,"status":"pending"}`)
	})

	rec, err := client.CreateBooking(context.Background(), &booking.Request{Kind: booking.KindOperation, Specialty: "ortho"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if rec.ID != 202 || rec.Kind != booking.KindOperation {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestCreateBooking_RejectedIsNotRetried(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"detail":"Slot already booked"}`)
	})

	_, err := client.CreateBooking(context.Background(), &booking.Request{Kind: booking.KindAppointment})
	if !errors.Is(err, ErrValidationRejected) {
		t.Fatalf("expected ErrValidationRejected, got %v", err)
	}
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got %T", err)
	}
	if rejected.Message != "Slot already booked" {
		t.Fatalf("expected verbatim backend message, got %q", rejected.Message)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected exactly one call, got %d", n)
	}
}

func TestUnauthorizedClearsToken(t *testing.T) {
	client, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"detail":"Not authenticated"}`)
	})

	_, err := client.CreateBooking(context.Background(), &booking.Request{Kind: booking.KindAppointment})
	if !errors.Is(err, ErrAuthenticationRequired) {
		t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
	}
	if _, err := tokens.Token(context.Background()); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("expected token to be cleared, got %v", err)
	}
}

func TestExpiredTokenSkipsNetwork(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	client := NewClient(srv.URL, session.NewStaticToken(expired), logging.Discard())

	_, err = client.PaymentStatus(context.Background(), 555)
	if !errors.Is(err, ErrAuthenticationRequired) {
		t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("expected no network calls, got %d", n)
	}
}

func TestCreateOrder(t *testing.T) {
	var gotBody map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/payments/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"paymentId":555,"paymentSessionId":"sess_abc"}`)
	})

	order, err := client.CreateOrder(context.Background(), OrderRequest{
		BookingID:   101,
		BookingKind: booking.KindAppointment,
		Amount:      500,
		Currency:    "inr",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if order.PaymentID != 555 || order.PaymentSessionID != "sess_abc" {
		t.Fatalf("unexpected order: %+v", order)
	}
	want := map[string]any{"bookingId": float64(101), "bookingKind": "appointment", "amount": float64(500), "currency": "INR"}
	for k, v := range want {
		if gotBody[k] != v {
			t.Fatalf("expected %s=%v, got %#v", k, v, gotBody[k])
		}
	}
}

func TestCreateOrder_MissingSessionToken(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"paymentId":555}`)
	})

	_, err := client.CreateOrder(context.Background(), OrderRequest{
		BookingID: 101, BookingKind: booking.KindAppointment, Amount: 500, Currency: "INR",
	})
	if !errors.Is(err, ErrOrderCreationFailed) {
		t.Fatalf("expected ErrOrderCreationFailed, got %v", err)
	}
}

func TestCreateOrder_RejectsBadInput(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected")
	})
	if _, err := client.CreateOrder(context.Background(), OrderRequest{BookingKind: booking.KindAppointment, Amount: 500}); err == nil {
		t.Fatal("expected error for missing booking id")
	}
	if _, err := client.CreateOrder(context.Background(), OrderRequest{BookingID: 1, BookingKind: booking.KindAppointment}); err == nil {
		t.Fatal("expected error for zero amount")
	}
}

func TestPaymentStatus_IsIdempotentRead(t *testing.T) {
	var gets, others int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/payments/555/status" {
			atomic.AddInt32(&others, 1)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		atomic.AddInt32(&gets, 1)
		fmt.Fprint(w, `{"status":"pending"}`)
	})

	for i := 0; i < 5; i++ {
		status, err := client.PaymentStatus(context.Background(), 555)
		if err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
		if status != PaymentPending {
			t.Fatalf("poll %d: expected PENDING, got %s", i, status)
		}
	}
	if g, o := atomic.LoadInt32(&gets), atomic.LoadInt32(&others); g != 5 || o != 0 {
		t.Fatalf("expected 5 status reads and nothing else, got gets=%d others=%d", g, o)
	}
}

func TestPaymentStatus_ServerError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream down")
	})

	_, err := client.PaymentStatus(context.Background(), 555)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway || apiErr.Message != "upstream down" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestCatalog(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/hospitals":
			fmt.Fprint(w, `[{"id":3,"name":"Anagha General"}]`)
		case "/hospitals/3/doctors":
			fmt.Fprint(w, `[{"id":7,"name":"Dr. Mehta"}]`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	catalog, err := client.Catalog(context.Background(), "Anagha General")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if len(catalog.Hospitals) != 1 || len(catalog.Doctors) != 1 || catalog.Doctors[0].ID != 7 {
		t.Fatalf("unexpected catalog: %+v", catalog)
	}
}
