// Package leaseclient is a small HTTP client for the lease API.
package leaseclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Class   string `json:"class"`
}

func (e *APIError) Error() string {
	if e.Class != "" {
		return fmt.Sprintf("lease api: %d %s: %s", e.Status, e.Class, e.Message)
	}
	return fmt.Sprintf("lease api: %d: %s", e.Status, e.Message)
}

// Client calls the lease API with a bearer token.
type Client struct {
	http *resty.Client
}

// Option configures the client.
type Option func(*resty.Client)

// WithTimeout overrides the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *resty.Client) {
		if timeout > 0 {
			c.SetTimeout(timeout)
		}
	}
}

// WithRetries retries transport failures and 5xx responses.
func WithRetries(count int) Option {
	return func(c *resty.Client) {
		c.SetRetryCount(count).
			SetRetryWaitTime(500 * time.Millisecond).
			SetRetryMaxWaitTime(5 * time.Second).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil || r.StatusCode() >= http.StatusInternalServerError
			})
	}
}

// New constructs a client for baseURL.
func New(baseURL, token string, opts ...Option) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")
	if token != "" {
		c.SetAuthToken(token)
	}
	for _, opt := range opts {
		opt(c)
	}
	return &Client{http: c}
}

// Property is the body of a listing request.
type Property struct {
	Address             string `json:"address"`
	Description         string `json:"description"`
	MonthlyRent         int64  `json:"monthly_rent"`
	SecurityDeposit     int64  `json:"security_deposit"`
	MinMaintenanceScore int    `json:"min_maintenance_score"`
	IoTEnabled          bool   `json:"iot_enabled"`
}

// MoveIn is the body of an agreement request.
type MoveIn struct {
	PropertyID string    `json:"property_id"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Payment    int64     `json:"payment"`
}

// Scores is a condition report.
type Scores struct {
	Temperature int `json:"temperature"`
	Plumbing    int `json:"plumbing"`
	Security    int `json:"security"`
}

// ListProperty lists a property and returns its id.
func (c *Client) ListProperty(ctx context.Context, in Property) (string, error) {
	var out struct {
		PropertyID string `json:"property_id"`
	}
	if err := c.post(ctx, "/api/v1/properties", in, &out); err != nil {
		return "", err
	}
	return out.PropertyID, nil
}

// CreateAgreement moves the caller into a property and returns the agreement id.
func (c *Client) CreateAgreement(ctx context.Context, in MoveIn) (string, error) {
	var out struct {
		AgreementID string `json:"agreement_id"`
	}
	if err := c.post(ctx, "/api/v1/agreements", in, &out); err != nil {
		return "", err
	}
	return out.AgreementID, nil
}

// PayRent pays one month of rent into escrow.
func (c *Client) PayRent(ctx context.Context, agreementID string, payment int64) error {
	return c.post(ctx, "/api/v1/agreements/"+agreementID+"/rent", map[string]int64{"payment": payment}, nil)
}

// ReleaseRent releases the escrowed rent to the landlord.
func (c *Client) ReleaseRent(ctx context.Context, agreementID string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.post(ctx, "/api/v1/agreements/"+agreementID+"/release", nil, &out)
	return out, err
}

// Terminate ends an agreement after its end date.
func (c *Client) Terminate(ctx context.Context, agreementID string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.post(ctx, "/api/v1/agreements/"+agreementID+"/terminate", nil, &out)
	return out, err
}

// RaiseDispute opens a dispute, staking deposit.
func (c *Client) RaiseDispute(ctx context.Context, agreementID string, deposit int64) error {
	return c.post(ctx, "/api/v1/agreements/"+agreementID+"/dispute", map[string]int64{"deposit": deposit}, nil)
}

// ResolveDispute rules on an open dispute.
func (c *Client) ResolveDispute(ctx context.Context, agreementID string, favorTenant bool) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.post(ctx, "/api/v1/agreements/"+agreementID+"/dispute/resolve", map[string]bool{"favor_tenant": favorTenant}, &out)
	return out, err
}

// ReportCondition submits a condition report for a property.
func (c *Client) ReportCondition(ctx context.Context, propertyID string, scores Scores) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.post(ctx, "/api/v1/properties/"+propertyID+"/condition", scores, &out)
	return out, err
}

// Get fetches path and returns the raw JSON body.
func (c *Client) Get(ctx context.Context, path string, query map[string]string) (json.RawMessage, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("lease api: get %s: %w", path, err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return json.RawMessage(resp.Body()), nil
}

// Statement downloads the caller's statement as pdf or xlsx.
func (c *Client) Statement(ctx context.Context, format, party string) ([]byte, error) {
	req := c.http.R().SetContext(ctx).SetHeader("Accept", "*/*")
	if party != "" {
		req.SetQueryParam("party", party)
	}
	resp, err := req.Get("/api/v1/statements/" + format)
	if err != nil {
		return nil, fmt.Errorf("lease api: statement: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return resp.Body(), nil
}

// post sends body with a fresh idempotency key, so a retried request is
// applied at most once.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", uuid.NewString())
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	resp, err := req.Post(path)
	if err != nil {
		return fmt.Errorf("lease api: post %s: %w", path, err)
	}
	if resp.IsError() {
		return apiError(resp)
	}
	if out != nil && len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("lease api: decode %s: %w", path, err)
		}
	}
	return nil
}

func apiError(resp *resty.Response) error {
	apiErr := &APIError{Status: resp.StatusCode()}
	if err := json.Unmarshal(resp.Body(), apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode())
	}
	return apiErr
}
