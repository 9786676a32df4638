// Package photos provisions an account on the external photo service, 1:1
// with the principal's email, and writes the generated API credential back
// into the relational profile row (sealed, never in the clear).
package photos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/akarpov87/identity-gateway/internal/common"
)

// ErrAccountExists is returned by CreateAccount when another request won
// the creation race. The caller proceeds as if the account had been found.
var ErrAccountExists = errors.New("photo account already exists")

// Account is the photo service's account record.
type Account struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Client is a minimal client for the photo service's admin API.
type Client struct {
	baseURL  string
	adminKey string
	http     *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

func NewClient(baseURL, adminKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  baseURL,
		adminKey: adminKey,
		http:     &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FindAccount looks up the account for email.
// Returns common.ErrorNotFound when none exists.
func (c *Client) FindAccount(ctx context.Context, email string) (*Account, error) {
	u := fmt.Sprintf("%s/api/accounts/lookup?email=%s", c.baseURL, url.QueryEscape(email))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	acct := &Account{}
	if err := c.do(req, http.StatusOK, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// CreateAccount creates an account for email.
// A conflict yields ErrAccountExists.
func (c *Client) CreateAccount(ctx context.Context, email string) (*Account, error) {
	body, err := json.Marshal(map[string]string{"email": email})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/accounts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	acct := &Account{}
	if err := c.do(req, http.StatusCreated, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// CreateAPIKey mints an API key for the account. The raw key is returned
// exactly once; the service stores only a digest.
func (c *Client) CreateAPIKey(ctx context.Context, accountID string) (string, error) {
	u := fmt.Sprintf("%s/api/accounts/%s/api-keys", c.baseURL, url.PathEscape(accountID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return "", err
	}

	var out struct {
		Key string `json:"key"`
	}
	if err := c.do(req, http.StatusCreated, &out); err != nil {
		return "", err
	}
	if out.Key == "" {
		return "", errors.New("photo service returned an empty api key")
	}
	return out.Key, nil
}

func (c *Client) do(req *http.Request, wantStatus int, out any) error {
	req.Header.Set("X-Api-Key", c.adminKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == wantStatus:
		return json.NewDecoder(resp.Body).Decode(out)
	case resp.StatusCode == http.StatusNotFound:
		return common.ErrorNotFound
	case resp.StatusCode == http.StatusConflict:
		return ErrAccountExists
	default:
		return fmt.Errorf("photo service returned %s", resp.Status)
	}
}
