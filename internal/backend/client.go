package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/internal/session"
	"github.com/rahulsharma70/Anagha-hospital-frontdesk-Frontend/pkg/logging"
)

var backendTracer = otel.Tracer("frontdesk.internal.backend")

// Client talks to the hospital REST backend. It never retries on its own:
// booking and order creation are not idempotent, and status polling is paced
// by the reconciler.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     session.TokenSource
	logger     *logging.Logger
}

func NewClient(baseURL string, tokens session.TokenSource, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		tokens:     tokens,
		logger:     logger,
	}
}

// WithHTTPClient overrides the transport (tests, custom timeouts).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, span := backendTracer.Start(ctx, "backend."+strings.ToLower(method))
	defer span.End()
	span.SetAttributes(attribute.String("http.route", path))

	token, err := c.bearer(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("backend: encode %s: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("backend: request %s: %w", path, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return fmt.Errorf("backend: http %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := c.mapStatus(ctx, resp)
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, "status")
		c.logger.Warn("backend call failed",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"request_id", requestID,
		)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) bearer(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", fmt.Errorf("%w: no token source configured", ErrAuthenticationRequired)
	}
	token, err := c.tokens.Token(ctx)
	if err == nil {
		return token, nil
	}
	if errors.Is(err, session.ErrNoSession) || errors.Is(err, session.ErrExpired) {
		return "", fmt.Errorf("%w: %v", ErrAuthenticationRequired, err)
	}
	return "", fmt.Errorf("backend: load token: %w", err)
}

func (c *Client) mapStatus(ctx context.Context, resp *http.Response) error {
	msg := readMessage(resp.Body)
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if c.tokens != nil {
			if err := c.tokens.Clear(ctx); err != nil {
				c.logger.Error("failed to clear session token", "error", err)
			}
		}
		return ErrAuthenticationRequired
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return &RejectedError{StatusCode: resp.StatusCode, Message: msg}
	default:
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
}

// readMessage pulls a human readable message out of an error body. The backend
// uses "detail"; "message" and "error" are accepted too.
func readMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 64<<10))
	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		var detail string
		if len(body.Detail) > 0 && json.Unmarshal(body.Detail, &detail) == nil && detail != "" {
			return detail
		}
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
		if len(body.Detail) > 0 {
			return string(body.Detail)
		}
	}
	return strings.TrimSpace(string(raw))
}
