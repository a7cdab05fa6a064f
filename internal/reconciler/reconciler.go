package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/backend"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/booking"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/checkout"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/observability/metrics"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/paymentstate"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/pkg/logging"
)

var reconcilerTracer = otel.Tracer("frontdesk.internal.reconciler")

var (
	// ErrPaymentInFlight rejects a new payment while another one is unresolved.
	ErrPaymentInFlight = errors.New("reconciler: a payment is already in progress")
	// ErrNothingToVerify means there is no pending record to check.
	ErrNothingToVerify = errors.New("reconciler: no pending payment to verify")
	// ErrRetryThrottled means manual checks are arriving faster than allowed.
	ErrRetryThrottled = errors.New("reconciler: retry throttled")
	// ErrPollingTimeout is attached to the view when the attempt budget runs out.
	ErrPollingTimeout = errors.New("reconciler: verification timed out")
)

const (
	msgPending      = "Complete the payment in the checkout window."
	msgVerifying    = "Verifying your payment."
	msgUnreachable  = "Could not reach the server. Retrying shortly."
	msgSuccess      = "Payment confirmed."
	msgFailed       = "Payment failed. Please start a new booking."
	msgTimedOut     = "Payment verification timed out. Check again in a moment."
	msgSignIn       = "Your session has expired. Sign in and check again."
	msgNoCheckout   = "Checkout could not be opened. Please book again."
	msgExpired      = "Your previous payment attempt expired."
	msgUnreadable   = "Your previous payment attempt could not be read."
	msgWaitingCheck = "Payment is still processing."
)

// Opener opens hosted checkout for a payment session.
type Opener interface {
	Open(ctx context.Context, sessionID string) error
}

// StatusQuerier reads the backend's payment status.
type StatusQuerier interface {
	PaymentStatus(ctx context.Context, paymentID int64) (backend.PaymentStatus, error)
}

// Config bounds polling and manual retries.
type Config struct {
	PollInterval time.Duration
	MaxAttempts  int
	MaxAge       time.Duration
	RetryEvery   time.Duration
	RetryBurst   int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 30
	}
	if c.MaxAge <= 0 {
		c.MaxAge = paymentstate.MaxAge
	}
	if c.RetryEvery <= 0 {
		c.RetryEvery = 2 * time.Second
	}
	if c.RetryBurst <= 0 {
		c.RetryBurst = 3
	}
	return c
}

// BeginParams identifies a freshly created payment order.
type BeginParams struct {
	BookingID        int64
	BookingKind      booking.Kind
	PaymentID        int64
	PaymentSessionID string
}

// Reconciler owns the pending payment record and decides the payment outcome
// from backend status queries only. Redirect parameters and checkout callbacks
// are hints that trigger a query, never a verdict.
type Reconciler struct {
	store   paymentstate.Store
	querier StatusQuerier
	opener  Opener
	cfg     Config
	logger  *logging.Logger
	metrics *metrics.PaymentMetrics
	limiter *rate.Limiter

	now       func() time.Time
	newTicker func(time.Duration) Ticker

	mu       sync.Mutex
	status   Status
	message  string
	lastErr  error
	record   *paymentstate.PendingPayment
	attempts int
	task     *pollTask
	gen      uint64
	subs     map[int]chan View
	nextSub  int
}

func New(store paymentstate.Store, querier StatusQuerier, opener Opener, cfg Config, logger *logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.Default()
	}
	cfg = cfg.withDefaults()
	return &Reconciler{
		store:     store,
		querier:   querier,
		opener:    opener,
		cfg:       cfg,
		logger:    logger,
		limiter:   rate.NewLimiter(rate.Every(cfg.RetryEvery), cfg.RetryBurst),
		now:       time.Now,
		newTicker: newTimeTicker,
		status:    StatusIdle,
		subs:      map[int]chan View{},
	}
}

// WithClock replaces the wall clock used for record timestamps and staleness.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	if now != nil {
		r.now = now
	}
	return r
}

// WithTickerFactory replaces the poll ticker.
func (r *Reconciler) WithTickerFactory(f func(time.Duration) Ticker) *Reconciler {
	if f != nil {
		r.newTicker = f
	}
	return r
}

func (r *Reconciler) WithMetrics(m *metrics.PaymentMetrics) *Reconciler {
	r.metrics = m
	return r
}

// Begin records a new payment order and opens hosted checkout for it
// (Idle to Pending). Polling starts one interval later. If checkout cannot be
// opened the record is dropped and the view fails immediately.
func (r *Reconciler) Begin(ctx context.Context, p BeginParams) (View, error) {
	if p.BookingID <= 0 || p.PaymentID <= 0 || p.PaymentSessionID == "" || !p.BookingKind.Valid() {
		return r.Snapshot(), fmt.Errorf("reconciler: begin: incomplete payment order %+v", p)
	}

	r.mu.Lock()
	if r.status.Active() {
		view := r.viewLocked()
		r.mu.Unlock()
		return view, ErrPaymentInFlight
	}
	_, err := paymentstate.Load(ctx, r.store, r.now(), r.cfg.MaxAge)
	switch {
	case err == nil:
		view := r.viewLocked()
		r.mu.Unlock()
		return view, ErrPaymentInFlight
	case errors.Is(err, paymentstate.ErrNotFound), errors.Is(err, paymentstate.ErrStale), errors.Is(err, paymentstate.ErrCorrupt):
	default:
		view := r.viewLocked()
		r.mu.Unlock()
		return view, fmt.Errorf("reconciler: read payment state: %w", err)
	}

	rec := paymentstate.PendingPayment{
		BookingID:        p.BookingID,
		BookingKind:      p.BookingKind,
		PaymentID:        p.PaymentID,
		PaymentSessionID: p.PaymentSessionID,
		CreatedAt:        r.now(),
	}
	claimed, err := paymentstate.Claim(ctx, r.store, rec)
	if err != nil {
		view := r.viewLocked()
		r.mu.Unlock()
		return view, fmt.Errorf("reconciler: save payment state: %w", err)
	}
	if !claimed {
		view := r.viewLocked()
		r.mu.Unlock()
		return view, ErrPaymentInFlight
	}
	r.stopTaskLocked()
	r.record = &rec
	r.attempts = 0
	r.transitionLocked(StatusPending, msgPending, nil)
	r.mu.Unlock()

	openErr := r.opener.Open(ctx, rec.PaymentSessionID)

	r.mu.Lock()
	defer r.mu.Unlock()
	owned := r.record != nil && r.record.PaymentID == rec.PaymentID
	if openErr != nil {
		r.logger.Error("checkout could not be opened",
			"booking_id", rec.BookingID,
			"payment_id", rec.PaymentID,
			"error", openErr,
		)
		if owned {
			r.stopTaskLocked()
			r.clearRecordLocked(context.WithoutCancel(ctx), "launcher_unavailable")
			r.transitionLocked(StatusFailed, msgNoCheckout, fmt.Errorf("%w: %v", checkout.ErrLauncherUnavailable, openErr))
		}
		return r.viewLocked(), fmt.Errorf("reconciler: open checkout: %w", openErr)
	}
	if owned && r.task == nil && r.status == StatusPending {
		r.startTaskLocked(rec.PaymentID, false)
	}
	return r.viewLocked(), nil
}

// Mount resumes reconciliation from the store. A stale record is discarded
// without any network call. Calling Mount while polling is a no-op.
func (r *Reconciler) Mount(ctx context.Context) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.task != nil {
		return r.viewLocked(), nil
	}
	return r.resumeLocked(ctx)
}

// Retry is the manual "check again" action. It reuses the stored payment id,
// restores the attempt budget and queries right away.
func (r *Reconciler) Retry(ctx context.Context) (View, error) {
	if !r.limiter.Allow() {
		return r.Snapshot(), ErrRetryThrottled
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	view, err := r.resumeLocked(ctx)
	if err != nil {
		return view, err
	}
	if view.Status != StatusVerifying {
		return view, ErrNothingToVerify
	}
	r.logger.Info("manual payment check", "payment_id", view.PaymentID)
	return view, nil
}

// Advisory takes a client-side outcome hint (redirect query or checkout
// callback) and turns it into an immediate status query. The hint itself is
// only logged.
func (r *Reconciler) Advisory(ctx context.Context, hint string) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger.Info("checkout outcome hint received", "hint", hint, "status", r.status)
	if r.task != nil && r.record != nil {
		r.startTaskLocked(r.record.PaymentID, true)
		return r.viewLocked(), nil
	}
	return r.resumeLocked(ctx)
}

// Unmount stops polling and waits for the poll goroutine to exit. The
// persisted record is kept so a later Mount can resume.
func (r *Reconciler) Unmount() {
	r.mu.Lock()
	t := r.task
	r.stopTaskLocked()
	r.mu.Unlock()
	if t != nil {
		<-t.done
	}
}

// Abandon drops a record that is no longer being polled, typically after a
// timed out verification the user gave up on.
func (r *Reconciler) Abandon(ctx context.Context) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.task != nil || r.status.Active() {
		return r.viewLocked(), ErrPaymentInFlight
	}
	if err := r.store.Clear(ctx); err != nil {
		return r.viewLocked(), fmt.Errorf("reconciler: clear payment state: %w", err)
	}
	r.metrics.ObserveCleared("abandoned")
	r.record = nil
	r.transitionLocked(StatusIdle, "", nil)
	return r.viewLocked(), nil
}

func (r *Reconciler) resumeLocked(ctx context.Context) (View, error) {
	rec, err := paymentstate.Load(ctx, r.store, r.now(), r.cfg.MaxAge)
	switch {
	case err == nil:
	case errors.Is(err, paymentstate.ErrNotFound):
		r.stopTaskLocked()
		r.record = nil
		if r.status.Active() {
			r.transitionLocked(StatusIdle, "", nil)
		}
		return r.viewLocked(), nil
	case errors.Is(err, paymentstate.ErrStale), errors.Is(err, paymentstate.ErrCorrupt):
		reason, msg := "stale", msgExpired
		if errors.Is(err, paymentstate.ErrCorrupt) {
			reason, msg = "corrupt", msgUnreadable
		}
		r.logger.Warn("discarded pending payment record", "reason", reason)
		r.metrics.ObserveCleared(reason)
		r.stopTaskLocked()
		r.record = nil
		r.attempts = 0
		r.transitionLocked(StatusIdle, msg, nil)
		return r.viewLocked(), nil
	default:
		return r.viewLocked(), fmt.Errorf("reconciler: load payment state: %w", err)
	}

	r.record = rec
	r.attempts = 0
	r.transitionLocked(StatusVerifying, msgVerifying, nil)
	r.startTaskLocked(rec.PaymentID, true)
	return r.viewLocked(), nil
}

func (r *Reconciler) clearRecordLocked(ctx context.Context, reason string) {
	if err := r.store.Clear(ctx); err != nil {
		// A leftover record only causes one more idempotent status query later.
		r.logger.Error("failed to clear pending payment", "reason", reason, "error", err)
	} else {
		r.metrics.ObserveCleared(reason)
	}
	r.record = nil
}

func (r *Reconciler) transitionLocked(to Status, message string, err error) {
	from := r.status
	r.status = to
	r.message = message
	r.lastErr = err
	if from != to {
		r.metrics.ObserveTransition(string(from), string(to))
		args := []any{"from", from, "to", to}
		if r.record != nil {
			args = append(args, "booking_id", r.record.BookingID, "payment_id", r.record.PaymentID)
		}
		if err != nil {
			args = append(args, "error", err)
		}
		r.logger.Info("payment status changed", args...)
	}
	r.publishLocked()
}
