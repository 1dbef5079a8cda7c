package domain

import (
	"encoding/json"
	"testing"
)

func TestInboxFormat_String(t *testing.T) {
	cases := []struct {
		in   InboxFormat
		want string
	}{
		{InboxURI, "uri"},
		{InboxFormPost, "form_post"},
		{InboxFormat(42), "unknown"},
	}
	for _, c := range cases {
		if got := c.in.String(); got != c.want {
			t.Fatalf("String(%d)=%q want %q", int(c.in), got, c.want)
		}
	}
}

func TestInboxLocation_JSON(t *testing.T) {
	b, err := json.Marshal(InboxLocation{Format: InboxURI, Value: "https://mail.example.com"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"format":0,"value":"https://mail.example.com"}` {
		t.Fatalf("unexpected json: %s", b)
	}
}

func TestSubscriptionFunc_Cancel(t *testing.T) {
	n := 0
	var s Subscription = SubscriptionFunc(func() { n++ })
	s.Cancel()
	if n != 1 {
		t.Fatalf("cancel ran %d times, want 1", n)
	}
}
