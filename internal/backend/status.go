package backend

import (
	"context"
	"fmt"
	"strings"
)

// PaymentStatus is the backend's verdict on a payment order. It is the only
// trusted source of payment truth.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// Terminal reports whether no further polling can change the outcome.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentFailed
}

// PaymentStatus reads the current status of a payment order. It is a pure
// read on the backend and safe to repeat.
func (c *Client) PaymentStatus(ctx context.Context, paymentID int64) (PaymentStatus, error) {
	if paymentID <= 0 {
		return "", fmt.Errorf("backend: payment status: payment id required")
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, "GET", fmt.Sprintf("/payments/%d/status", paymentID), nil, &body); err != nil {
		return "", err
	}
	status := PaymentStatus(strings.ToUpper(strings.TrimSpace(body.Status)))
	if status == "" {
		return "", fmt.Errorf("backend: payment status: response missing status")
	}
	return status, nil
}
