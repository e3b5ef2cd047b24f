// Package client is a typed HTTP client for the ShopMart API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shopmart/pkg/checkout"
	"shopmart/pkg/idempotency"
	"shopmart/pkg/item"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("not found")

// Client talks to one API base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListItems fetches the catalog.
func (c *Client) ListItems(ctx context.Context) ([]item.Item, error) {
	var items []item.Item
	if err := c.do(ctx, http.MethodGet, "/items", nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ImageURL fetches the signed image URL of an item.
func (c *Client) ImageURL(ctx context.Context, id string) (string, error) {
	var u string
	h := http.Header{"Accept": []string{"application/json"}}
	if err := c.do(ctx, http.MethodGet, "/items/"+url.PathEscape(id), h, nil, &u); err != nil {
		return "", err
	}
	return u, nil
}

// ItemPage fetches the HTML page of an item.
func (c *Client) ItemPage(ctx context.Context, id string) (string, error) {
	h := http.Header{"Accept": []string{"text/html"}}
	resp, err := c.send(ctx, http.MethodGet, "/items/"+url.PathEscape(id), h, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// CheckoutResult is the refreshed catalog returned by a checkout.
type CheckoutResult struct {
	Items    []item.Item
	Replayed bool
}

// Checkout settles cart. A non-empty idemKey is sent as Idempotency-Key.
// Rejections map to checkout.ErrInsufficientStock and
// checkout.ErrMalformedCart.
func (c *Client) Checkout(ctx context.Context, cart checkout.Cart, idemKey string) (CheckoutResult, error) {
	body, err := json.Marshal(cart)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("encode cart: %w", err)
	}

	h := http.Header{"Content-Type": []string{"application/json"}}
	if idemKey != "" {
		h.Set(idempotency.Header, idemKey)
	}

	resp, err := c.send(ctx, http.MethodPut, "/items", h, body)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
			switch apiErr.Message {
			case "Not enough stock":
				return CheckoutResult{}, fmt.Errorf("%w: %s", checkout.ErrInsufficientStock, apiErr.Message)
			case "malformed cart":
				return CheckoutResult{}, fmt.Errorf("%w: %s", checkout.ErrMalformedCart, apiErr.Message)
			}
		}
		return CheckoutResult{}, err
	}
	defer resp.Body.Close()

	var res CheckoutResult
	if err := json.NewDecoder(resp.Body).Decode(&res.Items); err != nil {
		return CheckoutResult{}, fmt.Errorf("decode items: %w", err)
	}
	res.Replayed = resp.Header.Get(idempotency.ReplayHeader) == "true"
	return res, nil
}

// Health checks the service is up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, h http.Header, body []byte, out any) error {
	resp, err := c.send(ctx, method, path, h, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// send returns the response for 2xx statuses; the caller closes its body.
func (c *Client) send(ctx context.Context, method, path string, h http.Header, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	for k, v := range h {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var e struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &e) == nil && e.Error != "" {
		msg = e.Error
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, msg)
	}
	return nil, &APIError{Status: resp.StatusCode, Message: msg}
}
