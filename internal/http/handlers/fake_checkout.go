package handlers

import (
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/pkg/logging"
)

// FakeCheckoutHandler stands in for the gateway's hosted checkout in local
// development. Its buttons only redirect back to the return page with a hint;
// the payment outcome still comes from the backend.
// Only mount this handler when ALLOW_FAKE_PAYMENTS=true.
type FakeCheckoutHandler struct {
	logger *logging.Logger
}

func NewFakeCheckoutHandler(logger *logging.Logger) *FakeCheckoutHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &FakeCheckoutHandler{logger: logger}
}

func (h *FakeCheckoutHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{sessionID}", h.HandleCheckout)
	return r
}

func (h *FakeCheckoutHandler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		http.Error(w, "payment session required", http.StatusBadRequest)
		return
	}
	h.logger.Warn("fake checkout page served", "payment_session_id", sessionID)

	returnURL := func(status string) string {
		q := url.Values{}
		q.Set("status", status)
		q.Set("payment_session_id", sessionID)
		return "/payments/return?" + q.Encode()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Test Checkout</title>
    <style>
      body{font-family:system-ui,-apple-system,Segoe UI,Roboto,Ubuntu,Cantarell,Noto Sans,sans-serif;max-width:680px;margin:40px auto;padding:0 16px;}
      .card{border:1px solid #e5e7eb;border-radius:12px;padding:18px;}
      .btn{display:inline-block;background:#111827;color:#fff;padding:12px 16px;border-radius:10px;text-decoration:none;margin-right:8px;}
      .muted{color:#6b7280;font-size:14px;}
      code{background:#f3f4f6;padding:2px 6px;border-radius:6px;}
    </style>
  </head>
  <body>
    <h1>Test Checkout</h1>
    <div class="card">
      <p class="muted">No money moves here. The front desk will still ask the hospital backend for the real payment status.</p>
      <a class="btn" href="%s">Return as paid</a>
      <a class="btn" href="%s">Return as failed</a>
      <p class="muted">Payment session: <code>%s</code></p>
    </div>
  </body>
</html>`, html.EscapeString(returnURL("success")), html.EscapeString(returnURL("failed")), html.EscapeString(sessionID))
}
