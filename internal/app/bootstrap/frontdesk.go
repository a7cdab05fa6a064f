package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/api/router"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/backend"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/checkout"
	appconfig "github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/config"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/frontdesk"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/http/handlers"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/observability/metrics"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/paymentstate"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/pricing"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/reconciler"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/session"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/pkg/logging"
)

// App is the wired front desk: one backend client, one checkout launcher and
// one reconciler shared by the CLI and the local return page.
type App struct {
	Config     *appconfig.Config
	Logger     *logging.Logger
	Tokens     session.TokenSource
	Backend    *backend.Client
	Launcher   reconciler.Opener
	Store      paymentstate.Store
	Reconciler *reconciler.Reconciler
	Flow       *frontdesk.Flow
	Registry   *prometheus.Registry

	closeStore func() error
}

// BuildApp wires the front desk around an already selected state store.
// Checkout URLs and status lines are written to out.
func BuildApp(cfg *appconfig.Config, store paymentstate.Store, closeStore func() error, out io.Writer, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("bootstrap: payment store is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if out == nil {
		out = io.Discard
	}
	if closeStore == nil {
		closeStore = func() error { return nil }
	}

	prices, err := pricing.NewTableResolver(cfg.PaymentCurrency, cfg.AppointmentFee, cfg.OperationFee).
		WithHospitalFeesJSON(cfg.HospitalFeesJSON)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: hospital fees: %w", err)
	}

	tokens := BuildTokenSource(cfg)
	client := backend.NewClient(cfg.APIBaseURL, tokens, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	launcher := BuildLauncher(cfg, out, logger)
	rec := reconciler.New(store, client, launcher, reconciler.Config{
		PollInterval: cfg.PollInterval,
		MaxAttempts:  cfg.PollMaxAttempts,
		MaxAge:       cfg.PaymentStateTTL,
	}, logger).WithMetrics(paymentMetrics)

	flow := frontdesk.NewFlow(client, prices, rec, store, logger).WithMaxAge(cfg.PaymentStateTTL)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Tokens:     tokens,
		Backend:    client,
		Launcher:   launcher,
		Store:      store,
		Reconciler: rec,
		Flow:       flow,
		Registry:   registry,
		closeStore: closeStore,
	}, nil
}

// BuildTokenSource prefers API_TOKEN over the saved session file.
func BuildTokenSource(cfg *appconfig.Config) session.TokenSource {
	if token := strings.TrimSpace(cfg.APIToken); token != "" {
		return session.NewStaticToken(token)
	}
	return session.NewFileStore(cfg.APITokenFile)
}

// BuildLauncher returns the fake launcher when ALLOW_FAKE_PAYMENTS is set,
// otherwise the hosted checkout launcher.
func BuildLauncher(cfg *appconfig.Config, out io.Writer, logger *logging.Logger) reconciler.Opener {
	var nav checkout.Navigator = checkout.WriterNavigator{W: out}
	if cfg.CheckoutOpenBrowser {
		nav = checkout.NewBrowserNavigator(out, logger)
	}
	if cfg.AllowFakePayments {
		logger.Warn("fake payments enabled; checkout will not reach the gateway")
		return checkout.NewFakeLauncher(cfg.PublicBaseURL, nav, logger)
	}
	loader := checkout.NewLoader(checkout.LoaderConfig{
		Mode:        cfg.CheckoutMode,
		SDKURL:      cfg.CheckoutSDKURL,
		CheckoutURL: cfg.CheckoutBaseURL,
	}, logger)
	return checkout.NewLauncher(loader, nav, logger)
}

// Handler builds the local return page router.
func (a *App) Handler() http.Handler {
	payments := handlers.NewPaymentsHandler(a.Reconciler, a.Config.AppointmentsURL, a.Logger)

	var fake *handlers.FakeCheckoutHandler
	if a.Config.AllowFakePayments {
		fake = handlers.NewFakeCheckoutHandler(a.Logger)
	}

	return router.New(&router.Config{
		Logger:             a.Logger,
		Payments:           payments,
		FakeCheckout:       fake,
		MetricsHandler:     promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: a.Config.CORSAllowedOrigins,
	})
}

// Close stops polling and releases the state store.
func (a *App) Close() error {
	a.Reconciler.Unmount()
	if err := a.closeStore(); err != nil {
		return fmt.Errorf("bootstrap: close state store: %w", err)
	}
	return nil
}

// Resume mounts the reconciler so a record left by an earlier run is picked up.
func (a *App) Resume(ctx context.Context) (reconciler.View, error) {
	return a.Reconciler.Mount(ctx)
}
