package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"
)

func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func TestIMAPProber_DialFailureIsNotAuthError(t *testing.T) {
	p := NewIMAPProber(closedAddr(t), "127.0.0.1", "me", "pw", "", true)
	if p.mailbox != "INBOX" {
		t.Fatalf("default mailbox = %q", p.mailbox)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := p.UnreadCount(ctx)
	if err == nil {
		t.Fatalf("expected dial error")
	}
	if IsAuthError(err) {
		t.Fatalf("dial failure must not be an auth error: %v", err)
	}
	if err := p.Validate(ctx); err == nil {
		t.Fatalf("expected validate error")
	}
}

func TestAuthError_Wrapping(t *testing.T) {
	base := errors.New("NO [AUTHENTICATIONFAILED]")
	err := fmt.Errorf("probe: %w", &AuthError{Username: "me", Err: base})
	if !IsAuthError(err) {
		t.Fatalf("IsAuthError should see through wrapping")
	}
	if !errors.Is(err, base) {
		t.Fatalf("AuthError should unwrap to its cause")
	}
	if IsAuthError(base) {
		t.Fatalf("plain error is not an auth error")
	}
}
