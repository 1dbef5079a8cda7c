// cmd/preflight/main.go
package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/hamed0406/unreadmail/internal/config"
	"github.com/hamed0406/unreadmail/internal/credential"
)

func main() {
	failed := false
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		failed = true
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg := config.FromEnv()

	// Accounts file
	accounts, err := config.LoadAccounts(cfg.AccountsFile)
	switch {
	case err != nil:
		fail(err.Error())
	case len(accounts) == 0:
		warn("no enabled accounts in " + cfg.AccountsFile + "; nothing will be watched.")
	default:
		ok(fmt.Sprintf("%d account(s) in %s", len(accounts), cfg.AccountsFile))
	}

	// Passwords
	if len(accounts) > 0 {
		ring, err := credential.Open()
		if err != nil {
			fail("keyring unavailable: " + err.Error())
		} else {
			for _, a := range accounts {
				_, err := ring.Get(a.PasswordKey())
				switch {
				case errors.Is(err, credential.ErrNotFound):
					fail("no password for " + a.ID + " (run: unreadmail password set " + a.ID + ")")
				case err != nil:
					fail(err.Error())
				default:
					ok("password stored for " + a.ID)
				}
			}
		}
	}

	// Alert backends
	if slices.Contains(cfg.AlertBackends, "desktop") {
		conn, err := dbus.ConnectSessionBus()
		if err != nil {
			fail("desktop alerts need a D-Bus session bus: " + err.Error())
		} else {
			conn.Close()
			ok("session bus reachable")
		}
	}
	if slices.Contains(cfg.AlertBackends, "slack") || cfg.SlackWebhook != "" {
		if u, err := url.Parse(cfg.SlackWebhook); err != nil || u.Scheme != "https" {
			fail("SLACK_WEBHOOK_URL must be an https URL.")
		} else {
			ok("SLACK_WEBHOOK_URL present")
		}
	}

	// Status API
	if cfg.StatusAddr == "" {
		warn("STATUS_ADDR is empty; the status API and `unreadmail status` are disabled.")
	} else {
		ok("STATUS_ADDR=" + cfg.StatusAddr)
		if !strings.HasPrefix(cfg.StatusAddr, "127.") && !strings.HasPrefix(cfg.StatusAddr, "localhost") &&
			len(cfg.StatusTokens) == 0 && len(cfg.ControlTokens) == 0 {
			warn("status API listens beyond loopback without STATUS_TOKENS or CONTROL_TOKENS.")
		}
	}

	if failed {
		os.Exit(1)
	}
	ok("preflight passed")
}
