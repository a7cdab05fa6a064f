package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/pkg/logging"
)

var checkoutTracer = otel.Tracer("frontdesk.internal.checkout")

// ErrLauncherUnavailable means hosted checkout cannot be opened: the SDK did
// not load (network blocked, ad-blocker, misconfiguration) or navigation failed.
var ErrLauncherUnavailable = errors.New("checkout: launcher unavailable")

// Handle is a loaded checkout SDK. One handle serves the whole process.
type Handle struct {
	Mode        string
	CheckoutURL string
	LoadedAt    time.Time
}

// LoaderConfig describes where the SDK and the hosted checkout page live.
type LoaderConfig struct {
	Mode        string
	SDKURL      string
	CheckoutURL string
	LoadTimeout time.Duration
}

// Loader loads the checkout SDK at most once per process. Concurrent callers
// share the in-flight load; a successful handle is kept forever, a failed load
// is not remembered so a later open can try again.
type Loader struct {
	cfg        LoaderConfig
	httpClient *http.Client
	logger     *logging.Logger

	group  singleflight.Group
	mu     sync.Mutex
	handle *Handle
	loads  int
}

func NewLoader(cfg LoaderConfig, logger *logging.Logger) *Loader {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = 10 * time.Second
	}
	if cfg.Mode == "" {
		cfg.Mode = "sandbox"
	}
	return &Loader{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.LoadTimeout},
		logger:     logger,
	}
}

// WithHTTPClient overrides the client used to fetch the SDK.
func (l *Loader) WithHTTPClient(hc *http.Client) *Loader {
	if hc != nil {
		l.httpClient = hc
	}
	return l
}

// Load returns the process-wide handle, loading the SDK on first use.
func (l *Loader) Load(ctx context.Context) (*Handle, error) {
	l.mu.Lock()
	if h := l.handle; h != nil {
		l.mu.Unlock()
		return h, nil
	}
	l.mu.Unlock()

	// The shared load must not die with whichever caller happened to start it.
	loadCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan("sdk", func() (any, error) {
		return l.load(loadCtx)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrLauncherUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Handle), nil
	}
}

// Loads reports how many network loads were attempted.
func (l *Loader) Loads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

func (l *Loader) load(ctx context.Context) (*Handle, error) {
	l.mu.Lock()
	if h := l.handle; h != nil {
		l.mu.Unlock()
		return h, nil
	}
	l.loads++
	l.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, l.cfg.LoadTimeout)
	defer cancel()
	ctx, span := checkoutTracer.Start(ctx, "checkout.load_sdk")
	defer span.End()
	span.SetAttributes(attribute.String("checkout.mode", l.cfg.Mode))

	if !isValidBaseURL(l.cfg.CheckoutURL) {
		return nil, fmt.Errorf("%w: checkout url must be an absolute http(s) URL", ErrLauncherUnavailable)
	}
	if !isValidBaseURL(l.cfg.SDKURL) {
		return nil, fmt.Errorf("%w: sdk url must be an absolute http(s) URL", ErrLauncherUnavailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.SDKURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLauncherUnavailable, err)
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		l.logger.Warn("checkout sdk failed to load", "sdk_url", l.cfg.SDKURL, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrLauncherUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<20))

	if resp.StatusCode >= http.StatusMultipleChoices {
		l.logger.Warn("checkout sdk failed to load", "sdk_url", l.cfg.SDKURL, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: sdk status %d", ErrLauncherUnavailable, resp.StatusCode)
	}

	h := &Handle{
		Mode:        l.cfg.Mode,
		CheckoutURL: strings.TrimRight(l.cfg.CheckoutURL, "/"),
		LoadedAt:    time.Now(),
	}
	l.mu.Lock()
	l.handle = h
	l.mu.Unlock()
	l.logger.Info("checkout sdk loaded", "mode", h.Mode)
	return h, nil
}

func isValidBaseURL(value string) bool {
	parsed, err := url.Parse(strings.TrimSpace(value))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return false
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return true
	default:
		return false
	}
}
