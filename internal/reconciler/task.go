package reconciler

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/backend"
)

// Ticker is the subset of time.Ticker the poll loop needs.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type timeTicker struct{ *time.Ticker }

func (t timeTicker) Chan() <-chan time.Time { return t.C }

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{time.NewTicker(d)}
}

// pollTask is the single active poller. Starting a new task cancels the old
// one and bumps the generation, so results from a replaced task are dropped.
type pollTask struct {
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

func (r *Reconciler) startTaskLocked(paymentID int64, immediate bool) {
	r.stopTaskLocked()
	r.gen++
	ctx, cancel := context.WithCancel(context.Background())
	t := &pollTask{gen: r.gen, cancel: cancel, done: make(chan struct{})}
	r.task = t
	go r.run(ctx, t, paymentID, immediate)
}

func (r *Reconciler) stopTaskLocked() {
	if r.task == nil {
		return
	}
	r.task.cancel()
	r.task = nil
	r.gen++
}

// finishLocked ends t after a terminal outcome.
func (r *Reconciler) finishLocked(t *pollTask) {
	if r.task == t {
		r.task = nil
	}
	t.cancel()
}

func (r *Reconciler) run(ctx context.Context, t *pollTask, paymentID int64, immediate bool) {
	defer close(t.done)
	if immediate && !r.poll(ctx, t, paymentID) {
		return
	}
	ticker := r.newTicker(r.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if !r.poll(ctx, t, paymentID) {
				return
			}
		}
	}
}

// poll issues one status query and applies the outcome. It reports whether
// the task should keep polling.
func (r *Reconciler) poll(ctx context.Context, t *pollTask, paymentID int64) bool {
	r.mu.Lock()
	if t.gen != r.gen {
		r.mu.Unlock()
		return false
	}
	r.attempts++
	attempt := r.attempts
	if r.status != StatusVerifying {
		r.transitionLocked(StatusVerifying, msgVerifying, nil)
	} else {
		r.publishLocked()
	}
	r.mu.Unlock()

	qctx, span := reconcilerTracer.Start(ctx, "reconciler.poll")
	span.SetAttributes(
		attribute.Int64("payment.id", paymentID),
		attribute.Int("poll.attempt", attempt),
	)
	start := time.Now()
	status, err := r.querier.PaymentStatus(qctx, paymentID)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status query")
	} else {
		span.SetAttributes(attribute.String("payment.status", string(status)))
	}
	span.End()

	r.mu.Lock()
	defer r.mu.Unlock()
	if t.gen != r.gen {
		return false
	}
	if err != nil {
		r.metrics.ObserveQuery("error", elapsed)
		return r.onQueryErrorLocked(ctx, t, paymentID, attempt, err)
	}
	r.metrics.ObserveQuery(string(status), elapsed)

	switch status {
	case backend.PaymentCompleted:
		r.logger.Info("payment confirmed by backend", "payment_id", paymentID, "attempt", attempt)
		r.clearRecordLocked(context.WithoutCancel(ctx), "completed")
		r.transitionLocked(StatusSuccess, msgSuccess, nil)
		r.finishLocked(t)
		return false
	case backend.PaymentFailed:
		r.logger.Info("payment failed per backend", "payment_id", paymentID, "attempt", attempt)
		r.clearRecordLocked(context.WithoutCancel(ctx), "failed")
		r.transitionLocked(StatusFailed, msgFailed, nil)
		r.finishLocked(t)
		return false
	}

	if attempt >= r.cfg.MaxAttempts {
		r.timeoutLocked(t, paymentID, attempt)
		return false
	}
	r.message = msgWaitingCheck
	r.lastErr = nil
	r.publishLocked()
	return true
}

func (r *Reconciler) onQueryErrorLocked(ctx context.Context, t *pollTask, paymentID int64, attempt int, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, backend.ErrAuthenticationRequired) {
		r.logger.Warn("payment check needs a new session", "payment_id", paymentID)
		r.transitionLocked(StatusFailed, msgSignIn, err)
		r.finishLocked(t)
		return false
	}
	r.logger.Warn("payment status query failed",
		"payment_id", paymentID,
		"attempt", attempt,
		"error", err,
	)
	if attempt >= r.cfg.MaxAttempts {
		r.timeoutLocked(t, paymentID, attempt)
		return false
	}
	r.message = msgUnreachable
	r.lastErr = err
	r.publishLocked()
	return true
}

// timeoutLocked gives up polling but keeps the record for a manual check.
func (r *Reconciler) timeoutLocked(t *pollTask, paymentID int64, attempt int) {
	r.logger.Warn("payment verification timed out", "payment_id", paymentID, "attempts", attempt)
	r.transitionLocked(StatusFailed, msgTimedOut, ErrPollingTimeout)
	r.finishLocked(t)
}
