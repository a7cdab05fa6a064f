package checkout

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/pkg/logging"
)

// FakeLauncher sends the user to the local page's fake checkout instead of the
// real gateway. The fake page only redirects back; the backend still decides
// the payment status.
//
// This MUST be gated by configuration (ALLOW_FAKE_PAYMENTS) and never enabled
// in production.
type FakeLauncher struct {
	publicBaseURL string
	navigator     Navigator
	logger        *logging.Logger
}

func NewFakeLauncher(publicBaseURL string, navigator Navigator, logger *logging.Logger) *FakeLauncher {
	if logger == nil {
		logger = logging.Default()
	}
	return &FakeLauncher{
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
		navigator:     navigator,
		logger:        logger,
	}
}

func (f *FakeLauncher) Open(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("checkout: payment session id required")
	}
	if !isValidBaseURL(f.publicBaseURL) {
		return fmt.Errorf("%w: fake checkout requires an absolute PUBLIC_BASE_URL", ErrLauncherUnavailable)
	}
	target := fmt.Sprintf("%s/payments/fake/%s", f.publicBaseURL, url.PathEscape(sessionID))
	if err := f.navigator.Navigate(ctx, target); err != nil {
		return fmt.Errorf("%w: navigate: %v", ErrLauncherUnavailable, err)
	}
	f.logger.Warn("fake checkout opened", "url", target)
	return nil
}
