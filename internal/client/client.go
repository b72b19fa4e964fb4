// Package client is a small typed client for the FitMeal HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ariefcatur/fitmeal/internal/catalog"
	"github.com/ariefcatur/fitmeal/internal/orders"
	"github.com/google/uuid"
)

type Client struct {
	BaseURL string
	Token   string // optional bearer token
	HTTP    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, header http.Header) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) ListMeals(ctx context.Context) ([]catalog.Meal, error) {
	var out []catalog.Meal
	err := c.do(ctx, http.MethodGet, "/meals", nil, &out, nil)
	return out, err
}

// CreateOrder posts the lines with a fresh Idempotency-Key so a retried
// request cannot create a second order.
func (c *Client) CreateOrder(ctx context.Context, userID string, items []orders.ItemInput) (orders.Order, error) {
	req := struct {
		UserID string             `json:"userId"`
		Items  []orders.ItemInput `json:"items"`
	}{userID, items}
	h := http.Header{}
	h.Set("Idempotency-Key", uuid.NewString())

	var o orders.Order
	err := c.do(ctx, http.MethodPost, "/orders", req, &o, h)
	return o, err
}

// Checkout starts a hosted payment session and returns its URL.
func (c *Client) Checkout(ctx context.Context, orderID string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	err := c.do(ctx, http.MethodPost, "/checkout", map[string]string{"orderId": orderID}, &out, nil)
	return out.URL, err
}
