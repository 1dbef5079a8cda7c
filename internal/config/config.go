package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	StatusAddr    string        // status API bind address; empty disables it
	StatusTokens  []string      // bearer tokens that may read the status API; empty means open
	ControlTokens []string      // bearer tokens that may also open inboxes
	CORSOrigins   []string      // browser origins allowed to call the status API
	OpenRate      int           // inbox opens per minute per client; 0 disables the limit
	LogDir        string        // logs directory
	LogLevel      string        // debug, info, warn, error
	LogConsole    bool          // tee logs to stderr
	AccountsFile  string        // YAML file with account definitions
	PollInterval  time.Duration // how often each account's unread count is probed
	ProbeTimeout  time.Duration // per-attempt IMAP timeout
	RetryAttempts int           // how many times to retry a failed probe
	RetryBackoff  time.Duration // backoff between retries
	PollWorkers   int           // accounts probed concurrently
	AlertBackends []string      // desktop, slack, log
	SlackWebhook  string

	// Probe failure notices, sent to Slack when a webhook is configured
	ProbeAlertCooldown time.Duration
	ProbeAlertRecovery bool

	Locale string // e.g. "de_DE.UTF-8"; empty means English
}

// FromEnv reads the daemon configuration. Without STATUS_TOKENS or
// CONTROL_TOKENS the status API, including the open action, needs no
// token; browser requests to open are still refused.
func FromEnv() Config {
	// Bind address; loopback only by default
	addr, ok := os.LookupEnv("STATUS_ADDR")
	if !ok {
		addr = "127.0.0.1:8737"
	}

	// Logs
	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}

	accounts := os.Getenv("ACCOUNTS_FILE")
	if accounts == "" {
		accounts = DefaultAccountsPath()
	}

	backends := splitList(os.Getenv("ALERT_BACKENDS"))
	if len(backends) == 0 {
		backends = []string{"desktop"}
	}

	locale := os.Getenv("LOCALE")
	if locale == "" {
		locale = os.Getenv("LANG")
	}

	return Config{
		StatusAddr:    addr,
		StatusTokens:  splitList(os.Getenv("STATUS_TOKENS")),
		ControlTokens: splitList(os.Getenv("CONTROL_TOKENS")),
		CORSOrigins:   splitList(os.Getenv("STATUS_CORS_ORIGINS")),
		OpenRate:      envInt("OPEN_RATE_PER_MIN", 6),
		LogDir:        logDir,
		LogLevel:      os.Getenv("LOG_LEVEL"),
		LogConsole:    os.Getenv("LOG_CONSOLE") == "true",
		AccountsFile:  accounts,
		PollInterval:  envMillis("POLL_INTERVAL_MS", 60*time.Second, 1),
		ProbeTimeout:  envMillis("PROBE_TIMEOUT_MS", 30*time.Second, 1),
		RetryAttempts: envInt("RETRY_ATTEMPTS", 2),
		RetryBackoff:  envMillis("RETRY_BACKOFF_MS", 300*time.Millisecond, 0),
		PollWorkers:   envInt("POLL_WORKERS", 4),
		AlertBackends: backends,
		SlackWebhook:  os.Getenv("SLACK_WEBHOOK_URL"),

		ProbeAlertCooldown: envMillis("PROBE_ALERT_COOLDOWN_MS", 30*time.Minute, 0),
		ProbeAlertRecovery: os.Getenv("PROBE_ALERT_RECOVERY") != "false",

		Locale: locale,
	}
}

// DefaultAccountsPath returns ~/.config/unreadmail/accounts.yaml.
func DefaultAccountsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "accounts.yaml")
	}
	return filepath.Join(home, ".config", "unreadmail", "accounts.yaml")
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// envMillis reads a millisecond duration; values below min are ignored.
func envMillis(key string, def time.Duration, min int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= min {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
