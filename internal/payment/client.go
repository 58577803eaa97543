// Package payment wraps the hosted-checkout provider: session creation on
// the way out, signed webhook events on the way in.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SessionLine is one priced line submitted when creating a checkout
// session. UnitPrice is authoritative server-side cents; Ref round-trips
// through the provider's metadata so the webhook can rebuild the cart.
type SessionLine struct {
	Name      string
	Ref       string
	UnitPrice int64
	Quantity  int64
}

// CreateSessionParams describes one hosted checkout session.
type CreateSessionParams struct {
	Lines         []SessionLine
	CustomerEmail string
	Currency      string
	SuccessURL    string
	CancelURL     string
}

// Session is the provider's view of a created checkout session.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateSession requests a hosted checkout session. Nothing is persisted
// locally at this point; the order only exists once the webhook confirms
// payment.
func (c *Client) CreateSession(ctx context.Context, p CreateSessionParams) (*Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("currency", p.Currency)
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	if p.CustomerEmail != "" {
		form.Set("customer_email", p.CustomerEmail)
	}
	for i, line := range p.Lines {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[name]", line.Name)
		form.Set(prefix+"[unit_amount]", strconv.FormatInt(line.UnitPrice, 10))
		form.Set(prefix+"[quantity]", strconv.FormatInt(line.Quantity, 10))
		form.Set(fmt.Sprintf("metadata[line_%d]", i), line.Ref)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("payment: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment: create session: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("payment: read response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment: create session: status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var s Session
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("payment: decode session: %w", err)
	}
	if s.ID == "" || s.URL == "" {
		return nil, fmt.Errorf("payment: incomplete session in response")
	}
	return &s, nil
}
