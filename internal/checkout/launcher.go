package checkout

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/pkg/logging"
)

// Launcher opens hosted checkout for a payment session. Open only reports
// whether the redirect could be started; the payment outcome is learned later
// by polling the backend.
type Launcher struct {
	loader         *Loader
	navigator      Navigator
	redirectTarget string
	logger         *logging.Logger
}

func NewLauncher(loader *Loader, navigator Navigator, logger *logging.Logger) *Launcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Launcher{
		loader:         loader,
		navigator:      navigator,
		redirectTarget: "_self",
		logger:         logger,
	}
}

// WithRedirectTarget sets where the hosted page opens ("_self" by default).
func (l *Launcher) WithRedirectTarget(target string) *Launcher {
	if strings.TrimSpace(target) != "" {
		l.redirectTarget = strings.TrimSpace(target)
	}
	return l
}

// LoadOnce exposes the memoized SDK handle.
func (l *Launcher) LoadOnce(ctx context.Context) (*Handle, error) {
	return l.loader.Load(ctx)
}

// Open loads the SDK if needed and navigates to the hosted checkout page.
func (l *Launcher) Open(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("checkout: payment session id required")
	}
	handle, err := l.loader.Load(ctx)
	if err != nil {
		return err
	}
	target, err := CheckoutURL(handle, sessionID, l.redirectTarget)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLauncherUnavailable, err)
	}

	ctx, span := checkoutTracer.Start(ctx, "checkout.open")
	defer span.End()
	if err := l.navigator.Navigate(ctx, target); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: navigate: %v", ErrLauncherUnavailable, err)
	}
	l.logger.Info("hosted checkout opened", "mode", handle.Mode)
	return nil
}

// CheckoutURL builds the hosted checkout address for a session.
func CheckoutURL(handle *Handle, sessionID, redirectTarget string) (string, error) {
	if handle == nil {
		return "", fmt.Errorf("checkout: sdk not loaded")
	}
	u, err := url.Parse(handle.CheckoutURL)
	if err != nil {
		return "", fmt.Errorf("checkout: parse checkout url: %w", err)
	}
	q := u.Query()
	q.Set("payment_session_id", sessionID)
	if redirectTarget != "" {
		q.Set("redirect_target", redirectTarget)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
