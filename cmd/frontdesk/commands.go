package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/app/bootstrap"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/booking"
	appconfig "github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/config"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/paymentstate"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/reconciler"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/session"
	appmigrations "github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/migrations"
)

func runBook(ctx context.Context, app *bootstrap.App, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("book", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var form booking.FormValues
	fs.StringVar(&form.Kind, "kind", "appointment", "appointment or operation")
	fs.StringVar(&form.Hospital, "hospital", "", "hospital id or name")
	fs.StringVar(&form.Doctor, "doctor", "", "doctor id or name")
	fs.StringVar(&form.Date, "date", "", "YYYY-MM-DD")
	fs.StringVar(&form.Time, "time", "", "HH:MM, 24h")
	fs.StringVar(&form.Specialty, "specialty", "", "required for operations")
	fs.StringVar(&form.PatientName, "patient-name", "", "")
	fs.StringVar(&form.Phone, "phone", "", "")
	fs.StringVar(&form.Notes, "notes", "", "")
	wait := fs.Bool("wait", true, "serve the return page and wait for the payment to settle")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	// Pick up a record from an earlier run first so the in-flight guard sees it.
	if _, err := app.Resume(ctx); err != nil {
		return err
	}
	if !app.Flow.CanSubmit(ctx) {
		if !*wait {
			return fmt.Errorf("a payment is already in progress; run resume, retry or abandon")
		}
		fmt.Fprintln(stdout, "A payment is already in progress; waiting for it to settle.")
		return waitForPayment(ctx, app, stdout)
	}

	if *wait {
		stop, err := startServer(app)
		if err != nil {
			return err
		}
		defer stop()
	}

	res, err := app.Flow.Submit(ctx, form)
	if err != nil {
		var verr *booking.ValidationError
		if errors.As(err, &verr) {
			for field, msg := range verr.Fields {
				fmt.Fprintf(stdout, "  %s: %s\n", field, msg)
			}
		}
		if res != nil && res.Booking != nil {
			fmt.Fprintf(stdout, "Booking %d was created but payment did not start.\n", res.Booking.ID)
		}
		return err
	}
	fmt.Fprintf(stdout, "Booking %d created; payment %d for %d %s.\n",
		res.Booking.ID, res.Order.PaymentID, res.Quote.Amount, res.Quote.Currency)

	if !*wait {
		return writeView(stdout, res.View)
	}
	return waitForPayment(ctx, app, stdout)
}

func waitForPayment(ctx context.Context, app *bootstrap.App, stdout io.Writer) error {
	view, err := follow(ctx, app.Reconciler, stdout)
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(stdout, "Stopped waiting; the payment is kept and can be checked with resume.")
			return nil
		}
		return err
	}
	if view.Status == reconciler.StatusSuccess {
		fmt.Fprintf(stdout, "Open %s to see the appointment.\n", app.Config.AppointmentsURL)
	}
	return outcome(view)
}

func runServe(ctx context.Context, app *bootstrap.App) error {
	stop, err := startServer(app)
	if err != nil {
		return err
	}
	if _, err := app.Resume(ctx); err != nil {
		app.Logger.Error("resume pending payment", "error", err)
	}
	<-ctx.Done()
	app.Logger.Info("shutting down return page...")
	stop()
	return nil
}

func runStatus(ctx context.Context, app *bootstrap.App, stdout io.Writer) error {
	rec, err := paymentstate.Load(ctx, app.Store, time.Now(), app.Config.PaymentStateTTL)
	switch {
	case errors.Is(err, paymentstate.ErrNotFound):
		fmt.Fprintln(stdout, "No payment pending.")
		return nil
	case errors.Is(err, paymentstate.ErrStale):
		fmt.Fprintln(stdout, "The previous payment attempt expired and was cleared.")
		return nil
	case errors.Is(err, paymentstate.ErrCorrupt):
		fmt.Fprintln(stdout, "The previous payment attempt could not be read and was cleared.")
		return nil
	case err != nil:
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"bookingId":   rec.BookingID,
		"bookingKind": rec.BookingKind,
		"paymentId":   rec.PaymentID,
		"createdAt":   rec.CreatedAt,
	})
}

func runResume(ctx context.Context, app *bootstrap.App, stdout io.Writer) error {
	view, err := app.Resume(ctx)
	if err != nil {
		return err
	}
	if !view.Status.Active() {
		return writeView(stdout, view)
	}
	return waitForPayment(ctx, app, stdout)
}

func runRetry(ctx context.Context, app *bootstrap.App, stdout io.Writer) error {
	if _, err := app.Reconciler.Retry(ctx); err != nil {
		return err
	}
	return waitForPayment(ctx, app, stdout)
}

func runAbandon(ctx context.Context, app *bootstrap.App, stdout io.Writer) error {
	view, err := app.Reconciler.Abandon(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Pending payment dropped.")
	return writeView(stdout, view)
}

func runLogin(ctx context.Context, cfg *appconfig.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	token := fs.String("token", "", "bearer token issued by the backend")
	logout := fs.Bool("logout", false, "remove the saved token")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	store := session.NewFileStore(cfg.APITokenFile)
	if *logout {
		if err := store.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "Signed out.")
		return nil
	}
	if strings.TrimSpace(*token) == "" {
		return fmt.Errorf("%w: --token is required", errUsage)
	}
	if err := store.Save(ctx, *token); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Token saved to %s.\n", cfg.APITokenFile)
	return nil
}

func runMigrate(ctx context.Context, cfg *appconfig.Config, args []string, stdout io.Writer) error {
	action := "up"
	if len(args) > 0 {
		action = args[0]
	}
	var version int
	switch action {
	case "up":
	case "force":
		if len(args) < 2 {
			return fmt.Errorf("%w: force needs a version", errUsage)
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: invalid version: %v", errUsage, err)
		}
		version = v
	default:
		return fmt.Errorf("%w: unknown migrate action %q", errUsage, action)
	}

	db, err := bootstrap.OpenDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if action == "force" {
		if err := m.Force(version); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
		fmt.Fprintf(stdout, "forced version to %d\n", version)
		return nil
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	fmt.Fprintln(stdout, "migrations complete")
	return nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("db driver: %w", err)
	}
	srcDriver, err := iofs.New(appmigrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("source driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

func writeView(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
