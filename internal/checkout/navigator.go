package checkout

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/pkg/logging"
)

// Navigator hands a URL to whatever shows it to the user.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// WriterNavigator prints the URL, for terminals where the user opens it by hand.
type WriterNavigator struct {
	W io.Writer
}

func (n WriterNavigator) Navigate(ctx context.Context, url string) error {
	_, err := fmt.Fprintf(n.W, "Continue to payment: %s\n", url)
	return err
}

// BrowserNavigator prints the URL and also tries the system browser. Once the
// URL is printed the user can pay, so a browser that fails to start is only
// logged.
type BrowserNavigator struct {
	Fallback WriterNavigator
	command  func(url string) *exec.Cmd
	logger   *logging.Logger
}

func NewBrowserNavigator(w io.Writer, logger *logging.Logger) *BrowserNavigator {
	if logger == nil {
		logger = logging.Default()
	}
	return &BrowserNavigator{Fallback: WriterNavigator{W: w}, command: browserCommand, logger: logger}
}

func (n *BrowserNavigator) Navigate(ctx context.Context, url string) error {
	if err := n.Fallback.Navigate(ctx, url); err != nil {
		return err
	}
	cmd := n.command(url)
	if cmd == nil {
		return nil
	}
	// Start only: the browser outlives this call.
	if err := cmd.Start(); err != nil {
		n.logger.Warn("could not open browser; use the printed checkout link", "error", err)
		return nil
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func browserCommand(url string) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url)
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", url)
	default:
		return nil
	}
}
