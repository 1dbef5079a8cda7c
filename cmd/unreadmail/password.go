package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hamed0406/unreadmail/internal/config"
)

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Manage IMAP passwords in the system keyring",
}

var passwordSetCmd = &cobra.Command{
	Use:   "set <account-id>",
	Short: "Store the IMAP password of an account",
	Long: `Store the IMAP password of an account in the system keyring.

The password is read from the terminal without echo, or from stdin when it
is piped:
  unreadmail password set work
  pass show mail/work | unreadmail password set work`,
	Args: cobra.ExactArgs(1),
	RunE: runPasswordSet,
}

var passwordDeleteCmd = &cobra.Command{
	Use:   "delete <account-id>",
	Short: "Remove the stored IMAP password of an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runPasswordDelete,
}

func init() {
	rootCmd.AddCommand(passwordCmd)
	passwordCmd.AddCommand(passwordSetCmd, passwordDeleteCmd)
}

func passwordKey(id string) string {
	return config.Account{ID: id}.PasswordKey()
}

func runPasswordSet(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	password, err := promptPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), "IMAP password for "+args[0]+": ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if password == "" {
		return fmt.Errorf("empty password")
	}
	if err := store.Set(passwordKey(args[0]), password); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Password stored for %s\n", args[0])
	return nil
}

func runPasswordDelete(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	if err := store.Delete(passwordKey(args[0])); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Password removed for %s\n", args[0])
	return nil
}

// promptPassword reads a password from the terminal without echo, or a
// single line from in when it is not a terminal.
func promptPassword(in io.Reader, prompt io.Writer, label string) (string, error) {
	fmt.Fprint(prompt, label)

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		return string(password), nil
	}

	password, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(password, "\r\n"), nil
}
