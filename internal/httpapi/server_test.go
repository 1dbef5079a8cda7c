package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/hamed0406/unreadmail/internal/binding"
	"github.com/hamed0406/unreadmail/internal/eventloop"
	apimw "github.com/hamed0406/unreadmail/internal/httpapi/middleware"
	"github.com/hamed0406/unreadmail/internal/l10n"
	"github.com/hamed0406/unreadmail/internal/notify"
)

// ---- test helpers ----

type fakeBackend struct {
	states  []binding.State
	listErr error
	opened  []string
}

func (f *fakeBackend) Accounts(context.Context) ([]binding.State, error) {
	return f.states, f.listErr
}

func (f *fakeBackend) OpenInbox(_ context.Context, id string) error {
	for _, s := range f.states {
		if s.AccountID == id {
			f.opened = append(f.opened, id)
			return nil
		}
	}
	return binding.ErrUnknownAccount
}

var testKeys = apimw.Keys{Read: []string{"read_test"}, Control: []string{"ctl_test"}}

func setupServer(t *testing.T, b Backend) *httptest.Server {
	t.Helper()
	srv := NewServer(zap.NewNop(), b)
	// very high rate limits to avoid flakiness in tests
	ts := httptest.NewServer(srv.Router(testKeys, nil, 10_000, 10_000))
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, token string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(method, url, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// ---- tests ----

func TestHealthz_NoAuth(t *testing.T) {
	ts := setupServer(t, &fakeBackend{})
	if resp := do(t, http.MethodGet, ts.URL+"/healthz", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
}

func TestMetrics_RequiresToken(t *testing.T) {
	ts := setupServer(t, &fakeBackend{})
	if resp := do(t, http.MethodGet, ts.URL+"/metrics", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401 without token, got %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodGet, ts.URL+"/metrics", "read_test"); resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
}

func TestListAccounts(t *testing.T) {
	b := &fakeBackend{states: []binding.State{
		{AccountID: "work", DisplayName: "Work", UnreadCount: 3, LastUnreadCount: 3},
	}}
	ts := setupServer(t, b)

	if resp := do(t, http.MethodGet, ts.URL+"/api/accounts", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401 without token, got %d", resp.StatusCode)
	}

	resp := do(t, http.MethodGet, ts.URL+"/api/accounts", "read_test")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	var got []struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
		UnreadCount uint   `json:"unread_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].ID != "work" || got[0].UnreadCount != 3 {
		t.Fatalf("unexpected accounts: %+v", got)
	}
}

func TestListAccounts_BackendDown(t *testing.T) {
	ts := setupServer(t, &fakeBackend{listErr: eventloop.ErrStopped})
	if resp := do(t, http.MethodGet, ts.URL+"/api/accounts", "read_test"); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("want 503, got %d", resp.StatusCode)
	}
}

func TestOpenInbox(t *testing.T) {
	b := &fakeBackend{states: []binding.State{{AccountID: "work"}}}
	ts := setupServer(t, b)

	if resp := do(t, http.MethodPost, ts.URL+"/api/accounts/work/open", "read_test"); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("want 403 with read token, got %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodPost, ts.URL+"/api/accounts/work/open", "ctl_test"); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("want 202, got %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodPost, ts.URL+"/api/accounts/ghost/open", "ctl_test"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("want 404 for unknown account, got %d", resp.StatusCode)
	}
	if len(b.opened) != 1 || b.opened[0] != "work" {
		t.Fatalf("unexpected opens: %v", b.opened)
	}
}

func TestOpenInbox_RateLimited(t *testing.T) {
	srv := NewServer(zap.NewNop(), &fakeBackend{states: []binding.State{{AccountID: "work"}}})
	ts := httptest.NewServer(srv.Router(apimw.Keys{}, nil, 1, 1))
	defer ts.Close()

	if resp := do(t, http.MethodPost, ts.URL+"/api/accounts/work/open", ""); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("want 202, got %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodPost, ts.URL+"/api/accounts/work/open", ""); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("want 429, got %d", resp.StatusCode)
	}
}

func TestOpenInbox_CrossSitePostRefusedWithoutTokens(t *testing.T) {
	b := &fakeBackend{states: []binding.State{{AccountID: "work"}}}
	srv := NewServer(zap.NewNop(), b)
	ts := httptest.NewServer(srv.Router(apimw.Keys{}, nil, 0, 0))
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/accounts/work/open", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("want 403, got %d", resp.StatusCode)
	}
	if len(b.opened) != 0 {
		t.Fatalf("inbox opened by a browser request: %v", b.opened)
	}
}

func TestCORS_PreflightForAllowedOrigin(t *testing.T) {
	srv := NewServer(zap.NewNop(), &fakeBackend{})
	ts := httptest.NewServer(srv.Router(apimw.Keys{}, []string{"http://localhost:3000"}, 0, 0))
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/accounts", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
}

func TestLoopBackend_WithCoordinator(t *testing.T) {
	loop := eventloop.New(zap.NewNop())
	go func() { _ = loop.Run(context.Background()) }()
	defer loop.Quit()

	c := binding.New(zap.NewNop(), notify.Log{Logger: zap.NewNop()}, nil, l10n.New("en"))
	b := LoopBackend{Loop: loop, Coordinator: c}

	states, err := b.Accounts(context.Background())
	if err != nil || len(states) != 0 {
		t.Fatalf("want no accounts, got %v %v", states, err)
	}
	if err := b.OpenInbox(context.Background(), "work"); !errors.Is(err, binding.ErrUnknownAccount) {
		t.Fatalf("want ErrUnknownAccount, got %v", err)
	}

	loop.Quit()
	if _, err := b.Accounts(context.Background()); !errors.Is(err, eventloop.ErrStopped) {
		t.Fatalf("want ErrStopped after quit, got %v", err)
	}
}
