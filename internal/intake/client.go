// Package intake posts leads and orders to the site's intake endpoints.
package intake

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

	"github.com/seungjae8520/hjjtest/internal/domain"
	"github.com/seungjae8520/hjjtest/internal/platform/config"
)

const (
	defaultTimeout   = 8 * time.Second
	defaultLeadPath  = "/api/lead.php"
	defaultOrderPath = "/api/order.php"
)

var (
	// ErrStatus wraps non-2xx responses.
	ErrStatus = errors.New("intake: unexpected status")
	// ErrDecode wraps bodies that are not a submit result.
	ErrDecode = errors.New("intake: unreadable response")
)

// Client submits to the intake endpoints. With no base URL it answers locally with a
// simulated success.
type Client struct {
	baseURL   string
	leadPath  string
	orderPath string
	token     string
	http      *http.Client
	newID     func() string
}

type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its timeout is left as given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithIDGenerator overrides the order ID used for simulated results.
func WithIDGenerator(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newID = fn
		}
	}
}

func NewClient(cfg config.IntakeConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		leadPath:  defaultString(cfg.LeadPath, defaultLeadPath),
		orderPath: defaultString(cfg.OrderPath, defaultOrderPath),
		token:     strings.TrimSpace(cfg.APIToken),
		http:      &http.Client{Timeout: timeout},
		newID:     simulatedOrderID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Simulated reports whether the client answers locally.
func (c *Client) Simulated() bool {
	return c == nil || c.baseURL == ""
}

// SubmitLead posts a free-analysis request. A success:false body is returned as a result,
// not an error.
func (c *Client) SubmitLead(ctx context.Context, lead domain.Lead) (domain.SubmitResult, error) {
	if c.Simulated() {
		return domain.SubmitResult{Success: true, Simulated: true}, nil
	}
	return c.post(ctx, c.leadPath, lead)
}

// SubmitOrder posts an order. A success:false body is returned as a result, not an error.
func (c *Client) SubmitOrder(ctx context.Context, payload domain.OrderPayload) (domain.SubmitResult, error) {
	if c.Simulated() {
		return domain.SubmitResult{Success: true, OrderID: c.newID(), Simulated: true}, nil
	}
	return c.post(ctx, c.orderPath, payload)
}

func (c *Client) post(ctx context.Context, path string, body any) (domain.SubmitResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return domain.SubmitResult{}, fmt.Errorf("intake: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return domain.SubmitResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.SubmitResult{}, fmt.Errorf("intake: post %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.SubmitResult{}, fmt.Errorf("%w %d from %s: %s", ErrStatus, resp.StatusCode, path, drainError(resp.Body))
	}

	var result domain.SubmitResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.SubmitResult{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	result.OrderID = strings.TrimSpace(result.OrderID)
	return result, nil
}

func drainError(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 256))
	return strings.TrimSpace(string(b))
}

func defaultString(val, fallback string) string {
	if v := strings.TrimSpace(val); v != "" {
		return v
	}
	return fallback
}
