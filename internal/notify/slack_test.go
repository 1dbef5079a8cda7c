package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSlack_OK(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		got = payload["text"]
		w.WriteHeader(200)
	}))
	defer ts.Close()

	s := NewSlack(ts.URL, zap.NewNop())
	if s == nil {
		t.Fatal("expected slack client")
	}
	err := s.Send(context.Background(), "Title", "Hello")
	if err != nil {
		t.Fatalf("send err: %v", err)
	}
	if got != "*Title*\nHello" {
		t.Fatalf("payload not as expected: %q", got)
	}
}

func TestSlack_Non2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer ts.Close()

	s := NewSlack(ts.URL, zap.NewNop())
	err := s.Send(context.Background(), "X", "Y")
	if err == nil {
		t.Fatalf("expected error on non-2xx")
	}
}

func TestSlack_DisabledWithoutWebhook(t *testing.T) {
	s := NewSlack("", zap.NewNop())
	if s != nil {
		t.Fatalf("expected nil slack without webhook")
	}
	if _, err := s.Create("", "", ""); err == nil {
		t.Fatalf("expected create to fail when disabled")
	}
}

func TestSlack_ShowPostsCurrentBody(t *testing.T) {
	got := make(chan string, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		got <- payload["text"]
	}))
	defer ts.Close()

	a, err := NewSlack(ts.URL, zap.NewNop()).Create("", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	a.Update("2 unread mails on Work", IconMailUnread)
	if err := a.Show(); err != nil {
		t.Fatalf("show: %v", err)
	}

	select {
	case text := <-got:
		if text != "2 unread mails on Work" {
			t.Fatalf("text=%q", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook not called")
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
