package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/reconciler"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/pkg/logging"
)

// Reconciler is the payment state machine behind the local page.
type Reconciler interface {
	Snapshot() reconciler.View
	Retry(ctx context.Context) (reconciler.View, error)
	Advisory(ctx context.Context, hint string) (reconciler.View, error)
	Subscribe() (<-chan reconciler.View, func())
	Await(ctx context.Context, done func(reconciler.View) bool) (reconciler.View, error)
}

// PaymentsHandler serves the checkout return page, status reads, manual
// checks and the live view stream.
type PaymentsHandler struct {
	payments        Reconciler
	appointmentsURL string
	settleTimeout   time.Duration
	logger          *logging.Logger
}

func NewPaymentsHandler(payments Reconciler, appointmentsURL string, logger *logging.Logger) *PaymentsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PaymentsHandler{
		payments:        payments,
		appointmentsURL: strings.TrimSpace(appointmentsURL),
		settleTimeout:   5 * time.Second,
		logger:          logger,
	}
}

// WithSettleTimeout bounds how long the return page waits for a verdict
// before answering with the in-progress view.
func (h *PaymentsHandler) WithSettleTimeout(d time.Duration) *PaymentsHandler {
	if d > 0 {
		h.settleTimeout = d
	}
	return h
}

// HandleReturn is the hosted checkout redirect target. Whatever the gateway
// put in the query string is only a hint: the page asks the backend and
// redirects to the appointments list only once the backend confirms.
func (h *PaymentsHandler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	hint := firstNonEmpty(q.Get("status"), q.Get("order_status"), q.Get("result"))
	if _, err := h.payments.Advisory(r.Context(), hint); err != nil {
		h.logger.Error("resume payment after checkout failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("could not read the pending payment"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.settleTimeout)
	defer cancel()
	view, err := h.payments.Await(ctx, func(v reconciler.View) bool {
		return !v.Status.Active()
	})
	if err != nil {
		view = h.payments.Snapshot()
	}

	if view.Status == reconciler.StatusSuccess && h.appointmentsURL != "" {
		http.Redirect(w, r, h.appointmentsURL, http.StatusSeeOther)
		return
	}
	writeJSON(w, viewStatusCode(view), view)
}

func (h *PaymentsHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	view := h.payments.Snapshot()
	writeJSON(w, http.StatusOK, view)
}

// HandleRetry is the "check again" button.
func (h *PaymentsHandler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	view, err := h.payments.Retry(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, view)
	case errors.Is(err, reconciler.ErrRetryThrottled):
		w.Header().Set("Retry-After", "2")
		writeJSON(w, http.StatusTooManyRequests, errorBody("checking too often, try again in a moment"))
	case errors.Is(err, reconciler.ErrNothingToVerify):
		writeJSON(w, http.StatusNotFound, errorBody("there is no pending payment to check"))
	default:
		h.logger.Error("manual payment check failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("could not check the payment"))
	}
}

// HandleEvents streams every view change over a websocket until the client
// goes away.
func (h *PaymentsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveEvents(conn, r)
	}).ServeHTTP(w, r)
}

func (h *PaymentsHandler) serveEvents(conn *websocket.Conn, r *http.Request) {
	updates, cancel := h.payments.Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		var ignored json.RawMessage
		for {
			if err := websocket.JSON.Receive(conn, &ignored); err != nil {
				return
			}
		}
	}()

	h.logger.Debug("payment events: connection opened", "remote_ip", r.RemoteAddr)
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case view, ok := <-updates:
			if !ok {
				return
			}
			if err := websocket.JSON.Send(conn, view); err != nil {
				h.logger.Debug("payment events: send failed", "error", err)
				return
			}
		}
	}
}

func (h *PaymentsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func viewStatusCode(v reconciler.View) int {
	if v.Status.Active() {
		return http.StatusAccepted
	}
	return http.StatusOK
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
