package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hamed0406/unreadmail/internal/binding"
)

// ErrUnauthorized is returned by the Client when the daemon rejects its token.
var ErrUnauthorized = errors.New("status api rejected the token")

// Client talks to a running daemon's status API.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(addr, token string) *Client {
	base := addr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		BaseURL: strings.TrimRight(base, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Accounts lists the accounts the daemon currently has alerts for.
func (c *Client) Accounts(ctx context.Context) ([]binding.State, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/accounts")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out []binding.State
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding accounts: %w", err)
	}
	return out, nil
}

// OpenInbox asks the daemon to open the account's inbox.
func (c *Client) OpenInbox(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodPost, "/api/accounts/"+url.PathEscape(id)+"/open")
	if err != nil {
		if errors.Is(err, errNotFound) {
			return fmt.Errorf("%s: %w", id, binding.ErrUnknownAccount)
		}
		return err
	}
	resp.Body.Close()
	return nil
}

var errNotFound = errors.New("not found")

func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, errNotFound
	case resp.StatusCode >= 300:
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s: status %d %s", method, path, resp.StatusCode, body.Error)
	}
	return resp, nil
}
