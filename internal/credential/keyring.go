// Package credential stores IMAP passwords in the system keyring.
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
)

const serviceName = "unreadmail"

// ErrNotFound is returned by Get when no password is stored under the key.
var ErrNotFound = errors.New("credential not found")

// Store reads and writes secrets by key.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Keyring is a Store backed by the OS keyring.
type Keyring struct {
	ring keyring.Keyring
}

// Open returns a Keyring using the first available backend.
func Open() (*Keyring, error) {
	dir := filepath.Join(".", "credentials")
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".config", serviceName, "credentials")
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  dir,
		FilePasswordFunc:         keyring.FixedStringPrompt(serviceName + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Keyring{ring: ring}, nil
}

// Get retrieves a credential value by key.
func (k *Keyring) Get(key string) (string, error) {
	item, err := k.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("getting credential %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores a credential value by key.
func (k *Keyring) Set(key string, value string) error {
	err := k.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: serviceName + " " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a credential by key.
func (k *Keyring) Delete(key string) error {
	if err := k.ring.Remove(key); err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// Memory is an in-process Store, used when no keyring is reachable and in tests.
type Memory map[string]string

func (m Memory) Get(key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("getting credential %q: %w", key, ErrNotFound)
	}
	return v, nil
}

func (m Memory) Set(key, value string) error {
	m[key] = value
	return nil
}

func (m Memory) Delete(key string) error {
	delete(m, key)
	return nil
}
