package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/http/handlers"
	httpmiddleware "github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/http/middleware"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Payments           *handlers.PaymentsHandler
	FakeCheckout       *handlers.FakeCheckoutHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Per-IP limit on the manual check endpoint (requests/sec, burst).
	RetryRateLimit float64
	RetryBurst     int
}

// New creates the local page router
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.Payments.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/payments", func(p chi.Router) {
		p.Get("/return", cfg.Payments.HandleReturn)
		p.Get("/status", cfg.Payments.HandleStatus)
		p.Get("/events", cfg.Payments.HandleEvents)

		retryRate, retryBurst := cfg.RetryRateLimit, cfg.RetryBurst
		if retryRate <= 0 {
			retryRate = 1
		}
		if retryBurst <= 0 {
			retryBurst = 5
		}
		p.With(httpmiddleware.RateLimit(retryRate, retryBurst)).Post("/retry", cfg.Payments.HandleRetry)

		// DEV ONLY: stand-in hosted checkout
		if cfg.FakeCheckout != nil {
			p.Mount("/fake", cfg.FakeCheckout.Routes())
		}
	})

	return r
}
