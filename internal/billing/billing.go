// Package billing talks to the external payment provider and keeps the
// premium flag on user records in sync with its webhook events.
package billing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fastjson"
)

// Config holds payment provider credentials.
type Config struct {
	SecretKey      string `env:"BILLING_SECRET_KEY"`
	PremiumPriceID string `env:"BILLING_PREMIUM_PRICE_ID"`
	BaseURL        string `env:"BILLING_BASE_URL" envDefault:"https://api.stripe.com/v1"`
	SuccessURL     string `env:"BILLING_SUCCESS_URL" envDefault:"http://localhost:3000/payment/success"`
	CancelURL      string `env:"BILLING_CANCEL_URL" envDefault:"http://localhost:3000/payment/cancel"`
}

// Client is the outbound side of the provider integration.
type Client interface {
	// CreateCustomer registers the email with the provider and returns the
	// customer reference to store on the user record.
	CreateCustomer(ctx context.Context, email string) (string, error)
	// CreateCheckoutSession opens a premium subscription checkout for the
	// customer and returns the hosted payment page URL.
	CreateCheckoutSession(ctx context.Context, customerID string) (string, error)
}

// HTTPClient implements Client against the provider's form-encoded REST API.
type HTTPClient struct {
	cfg        Config
	httpClient *http.Client
	parserPool fastjson.ParserPool
}

func NewHTTPClient(cfg Config) *HTTPClient {
	return &HTTPClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPClient) CreateCustomer(ctx context.Context, email string) (string, error) {
	form := url.Values{}
	form.Set("email", email)

	body, err := c.post(ctx, "/customers", form)
	if err != nil {
		return "", err
	}

	p := c.parserPool.Get()
	defer c.parserPool.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return "", fmt.Errorf("parsing customer response: %w", err)
	}

	return string(v.GetStringBytes("id")), nil
}

func (c *HTTPClient) CreateCheckoutSession(ctx context.Context, customerID string) (string, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("mode", "subscription")
	form.Set("line_items[0][price]", c.cfg.PremiumPriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", c.cfg.SuccessURL)
	form.Set("cancel_url", c.cfg.CancelURL)

	body, err := c.post(ctx, "/checkout/sessions", form)
	if err != nil {
		return "", err
	}

	p := c.parserPool.Get()
	defer c.parserPool.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return "", fmt.Errorf("parsing checkout session response: %w", err)
	}

	return string(v.GetStringBytes("url")), nil
}

func (c *HTTPClient) post(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("billing provider returned %d: %s", resp.StatusCode, body)
	}

	return body, nil
}
