// Package payout sends booked vault payouts to an external payment rail.
package payout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	lease "lease-escrow/internal/lease/domain"
	"lease-escrow/internal/observability/metrics"
)

// ErrRejected is returned when the rail refuses a transfer.
var ErrRejected = errors.New("payout: transfer rejected")

// Client is a minimal REST client for the payment rail.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout overrides the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.SetTimeout(timeout)
		}
	}
}

// NewClient constructs a rail client.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("payout: empty base url")
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if token != "" {
		httpClient.SetAuthToken(token)
	}
	c := &Client{http: httpClient, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type transferRequest struct {
	Reference   string `json:"reference"`
	Payee       string `json:"payee"`
	Amount      int64  `json:"amount"`
	Kind        string `json:"kind"`
	AgreementID string `json:"agreement_id,omitempty"`
	PropertyID  string `json:"property_id,omitempty"`
}

type transferResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// Transfer posts one committed payout. The ledger entry id is the transfer
// reference and idempotency key, so redelivering an entry cannot pay twice.
// A non-2xx answer, or a 2xx body whose status is set to anything other than
// "accepted", is a rejection.
func (c *Client) Transfer(ctx context.Context, entry lease.LedgerEntry) error {
	if entry.ID == "" {
		return errors.New("payout: entry without reference")
	}
	req := transferRequest{
		Reference: entry.ID,
		Payee:     string(entry.Party),
		Amount:    entry.Amount,
		Kind:      string(entry.Kind),
	}
	if entry.AgreementID != 0 {
		req.AgreementID = entry.AgreementID.String()
	}
	if entry.PropertyID != 0 {
		req.PropertyID = entry.PropertyID.String()
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", req.Reference).
		SetBody(req).
		Post("/transfers")
	if err != nil {
		metrics.IncPayout(req.Kind, metrics.ResultError)
		return fmt.Errorf("payout: post transfer: %w", err)
	}

	// Decoded by hand: resty only fills results for JSON content types.
	var out transferResponse
	if body := resp.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &out); err != nil && resp.IsError() {
			out.Error = strings.TrimSpace(string(body))
		}
	}
	if resp.IsError() || (out.Status != "" && !strings.EqualFold(out.Status, "accepted")) {
		metrics.IncPayout(req.Kind, "rejected")
		c.logger.Warn("payout rejected",
			zap.String("reference", req.Reference),
			zap.String("payee", req.Payee),
			zap.Int64("amount", req.Amount),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("error", out.Error),
		)
		if out.Error != "" {
			return fmt.Errorf("%w: %s", ErrRejected, out.Error)
		}
		return fmt.Errorf("%w: status %d %s", ErrRejected, resp.StatusCode(), out.Status)
	}
	metrics.IncPayout(req.Kind, metrics.ResultSuccess)
	return nil
}
