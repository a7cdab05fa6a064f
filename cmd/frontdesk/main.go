package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/cmd/mainconfig"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/app/bootstrap"
	appconfig "github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/config"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/reconciler"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/pkg/logging"
)

const usage = `usage: frontdesk <command> [flags]

commands:
  book      create a booking and open checkout for it
  serve     run the local return page and resume any pending payment
  status    show the locally stored pending payment
  resume    re-check a pending payment until it settles
  retry     manual "check again" after a timed out verification
  abandon   drop a pending payment that is no longer being checked
  login     save the backend bearer token
  migrate   apply postgres migrations for the postgres state backend
`

func main() {
	// Load .env file
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(stderr, usage)
		if len(args) == 0 {
			return 2
		}
		return 0
	}

	cfg := appconfig.Load()
	logger := logging.NewWithWriter(stderr, cfg.LogLevel)

	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "login":
		err = runLogin(ctx, cfg, rest, stdout)
	case "migrate":
		err = runMigrate(ctx, cfg, rest, stdout)
	case "book", "serve", "status", "resume", "retry", "abandon":
		err = runWithApp(ctx, cfg, logger, cmd, rest, stdout)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "%s: %v\n", cmd, err)
		return 2
	default:
		fmt.Fprintf(stderr, "%s: %v\n", cmd, err)
		return 1
	}
}

var errUsage = errors.New("invalid usage")

func runWithApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, cmd string, args []string, stdout io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	store, closeStore, err := bootstrap.BuildStateStore(ctx, cfg, logger, mainconfig.LoadAWSConfig)
	if err != nil {
		return err
	}
	app, err := bootstrap.BuildApp(cfg, store, closeStore, stdout, logger)
	if err != nil {
		_ = closeStore()
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}()

	switch cmd {
	case "book":
		return runBook(ctx, app, args, stdout)
	case "serve":
		return runServe(ctx, app)
	case "status":
		return runStatus(ctx, app, stdout)
	case "resume":
		return runResume(ctx, app, stdout)
	case "retry":
		return runRetry(ctx, app, stdout)
	default:
		return runAbandon(ctx, app, stdout)
	}
}

// startServer runs the local return page until ctx ends. The returned func
// shuts it down gracefully.
func startServer(app *bootstrap.App) (func(), error) {
	srv := &http.Server{
		Addr:              ":" + app.Config.Port,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		app.Logger.Info("return page listening", "addr", srv.Addr, "public_url", app.Config.PublicBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Surface bind errors before the caller opens checkout.
	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return nil, fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
	case <-time.After(100 * time.Millisecond):
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			app.Logger.Error("return page forced to shutdown", "error", err)
		}
	}, nil
}

// follow prints every view update until the payment leaves the pending and
// verifying states or ctx ends.
func follow(ctx context.Context, rec *reconciler.Reconciler, stdout io.Writer) (reconciler.View, error) {
	enc := json.NewEncoder(stdout)
	var lastStatus reconciler.Status
	var lastAttempts int
	return rec.Await(ctx, func(v reconciler.View) bool {
		if v.Status != lastStatus || v.Attempts != lastAttempts {
			_ = enc.Encode(v)
			lastStatus, lastAttempts = v.Status, v.Attempts
		}
		return !v.Status.Active()
	})
}

func outcome(v reconciler.View) error {
	if v.Status == reconciler.StatusFailed {
		if v.Err != nil {
			return fmt.Errorf("%s: %w", v.Message, v.Err)
		}
		return errors.New(v.Message)
	}
	return nil
}
