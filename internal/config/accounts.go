package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// ErrInvalidAccount is wrapped by LoadAccounts for entries that cannot be used.
var ErrInvalidAccount = errors.New("invalid account")

// Account describes one IMAP account to watch.
type Account struct {
	// ID is the stable key used for bindings and keyring entries.
	ID string `mapstructure:"id" yaml:"id"`

	// Name is shown in alerts. Defaults to Username.
	Name string `mapstructure:"name" yaml:"name"`

	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`

	// Mailbox is the folder whose unseen messages are counted.
	Mailbox string `mapstructure:"mailbox" yaml:"mailbox"`

	// InboxURL is opened by the alert's "Open" action. When empty an
	// imap:// URL for Mailbox is used.
	InboxURL string `mapstructure:"inbox_url" yaml:"inbox_url"`

	// InboxMethod is "get" (default) or "post" for webmail login forms.
	InboxMethod string `mapstructure:"inbox_method" yaml:"inbox_method"`

	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Addr returns host:port.
func (a Account) Addr() string {
	return net.JoinHostPort(a.Host, a.Port)
}

// PasswordKey is the keyring key holding the account's password.
func (a Account) PasswordKey() string {
	return "imap-" + a.ID
}

// LoadAccounts reads account definitions from the given YAML file using
// Viper. A missing file yields no accounts. Disabled accounts are dropped.
func LoadAccounts(path string) ([]Account, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, nil
		}
		return nil, fmt.Errorf("reading accounts %s: %w", path, err)
	}

	var raw struct {
		Accounts []Account `mapstructure:"accounts"`
	}
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("parsing accounts %s: %w", path, err)
	}

	seen := make(map[string]bool, len(raw.Accounts))
	out := make([]Account, 0, len(raw.Accounts))
	for i, a := range raw.Accounts {
		// Viper unmarshals missing bools as false; treat unset as true.
		if !v.IsSet(fmt.Sprintf("accounts.%d.enabled", i)) {
			a.Enabled = true
		}
		if !v.IsSet(fmt.Sprintf("accounts.%d.tls", i)) {
			a.TLS = true
		}
		if !a.Enabled {
			continue
		}
		a = withDefaults(a)
		if err := validate(a); err != nil {
			return nil, fmt.Errorf("accounts %s entry %d: %w", path, i, err)
		}
		if seen[a.ID] {
			return nil, fmt.Errorf("accounts %s: duplicate id %q: %w", path, a.ID, ErrInvalidAccount)
		}
		seen[a.ID] = true
		out = append(out, a)
	}
	return out, nil
}

func withDefaults(a Account) Account {
	if a.Port == "" {
		a.Port = "993"
		if !a.TLS {
			a.Port = "143"
		}
	}
	if a.Mailbox == "" {
		a.Mailbox = "INBOX"
	}
	if a.Name == "" {
		a.Name = a.Username
	}
	if a.ID == "" {
		a.ID = a.Username + "@" + a.Host
	}
	a.InboxMethod = strings.ToLower(strings.TrimSpace(a.InboxMethod))
	if a.InboxMethod == "" {
		a.InboxMethod = "get"
	}
	return a
}

func validate(a Account) error {
	switch {
	case a.Host == "":
		return fmt.Errorf("host is required: %w", ErrInvalidAccount)
	case a.Username == "":
		return fmt.Errorf("username is required: %w", ErrInvalidAccount)
	case a.InboxMethod != "get" && a.InboxMethod != "post":
		return fmt.Errorf("inbox_method %q: %w", a.InboxMethod, ErrInvalidAccount)
	}
	return nil
}
