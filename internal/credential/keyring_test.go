package credential

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
)

func TestKeyring_GetSetDelete(t *testing.T) {
	k := &Keyring{ring: keyring.NewArrayKeyring(nil)}

	if _, err := k.Get("imap-work"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := k.Set("imap-work", "s3cret"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := k.Get("imap-work")
	if err != nil || got != "s3cret" {
		t.Fatalf("get=%q err=%v", got, err)
	}
	if err := k.Delete("imap-work"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := k.Get("imap-work"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got %v", err)
	}
}

func TestMemory_Store(t *testing.T) {
	var s Store = Memory{}
	if err := s.Set("k", "v"); err != nil {
		t.Fatal(err)
	}
	if v, err := s.Get("k"); err != nil || v != "v" {
		t.Fatalf("get=%q err=%v", v, err)
	}
	_ = s.Delete("k")
	if _, err := s.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
