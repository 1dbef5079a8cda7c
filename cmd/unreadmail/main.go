package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hamed0406/unreadmail/internal/config"
	"github.com/hamed0406/unreadmail/internal/credential"
)

// openStore is replaced in tests.
var openStore = func() (credential.Store, error) { return credential.Open() }

var rootCmd = &cobra.Command{
	Use:   "unreadmail",
	Short: "Control a running unreadmail daemon and manage account passwords",
	Long: `unreadmail talks to the local status API of unreadmaild and manages the
passwords it reads from the system keyring.

Examples:
  unreadmail status                 # unread counts per account
  unreadmail open work              # open the inbox of account "work"
  unreadmail password set work      # store the IMAP password for "work"`,
	SilenceUsage: true,
}

func init() {
	cfg := config.FromEnv()
	addr := cfg.StatusAddr
	if addr == "" {
		addr = "127.0.0.1:8737"
	}
	rootCmd.PersistentFlags().String("addr", addr, "status API address of the daemon")
	rootCmd.PersistentFlags().String("token", os.Getenv("UNREADMAIL_TOKEN"), "bearer token for the status API")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
