package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hamed0406/unreadmail/internal/httpapi"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show unread counts of the accounts the daemon watches",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var openCmd = &cobra.Command{
	Use:   "open <account-id>",
	Short: "Open an account's inbox, as the alert's Open button does",
	Args:  cobra.ExactArgs(1),
	RunE:  runOpen,
}

func init() {
	rootCmd.AddCommand(statusCmd, openCmd)
	statusCmd.Flags().Bool("json", false, "output in JSON format")
}

func apiClient(cmd *cobra.Command) *httpapi.Client {
	addr, _ := cmd.Flags().GetString("addr")
	token, _ := cmd.Flags().GetString("token")
	return httpapi.NewClient(addr, token)
}

func runStatus(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	states, err := apiClient(cmd).Accounts(cmd.Context())
	if err != nil {
		return fmt.Errorf("is unreadmaild running? %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(states)
	}
	if len(states) == 0 {
		fmt.Fprintln(out, "No accounts.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tUNREAD")
	for _, s := range states {
		fmt.Fprintf(w, "%s\t%s\t%d\n", s.AccountID, s.DisplayName, s.UnreadCount)
	}
	return w.Flush()
}

func runOpen(cmd *cobra.Command, args []string) error {
	if err := apiClient(cmd).OpenInbox(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Opening inbox of %s\n", args[0])
	return nil
}
