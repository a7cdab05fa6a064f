package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthenticationRequired means the caller must sign in again. The
	// original action is never retried.
	ErrAuthenticationRequired = errors.New("backend: authentication required")
	// ErrValidationRejected means the backend refused the payload (for example
	// the slot is already booked). Only the user editing the form can fix it.
	ErrValidationRejected = errors.New("backend: request rejected")
	// ErrOrderCreationFailed means the backend answered without a usable
	// checkout session. Not transient.
	ErrOrderCreationFailed = errors.New("backend: payment order creation failed")
)

// RejectedError carries the backend's rejection message verbatim.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("backend: rejected (%d): %s", e.StatusCode, e.Message)
}

func (e *RejectedError) Unwrap() error { return ErrValidationRejected }

// APIError is any other non-2xx answer.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: api status %d: %s", e.StatusCode, e.Message)
}
