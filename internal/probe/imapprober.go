package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// AuthError indicates that the server rejected the account's credentials.
// It is not worth retrying until the password changes.
type AuthError struct {
	Username string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s: %v", e.Username, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IMAPProber counts unseen messages with STATUS. Every call opens its own
// connection and logs out afterwards.
type IMAPProber struct {
	addr     string
	host     string
	username string
	password string
	mailbox  string
	tls      bool
}

// NewIMAPProber creates a prober for one mailbox. With useTLS false the
// connection is upgraded with STARTTLS.
func NewIMAPProber(
	addr, host, username, password, mailbox string, useTLS bool,
) *IMAPProber {
	if mailbox == "" {
		mailbox = "INBOX"
	}
	return &IMAPProber{
		addr:     addr,
		host:     host,
		username: username,
		password: password,
		mailbox:  mailbox,
		tls:      useTLS,
	}
}

// connect dials, authenticates and returns the client. The connection is
// closed when ctx ends. The caller must log out.
func (p *IMAPProber) connect(ctx context.Context) (*imapclient.Client, error) {
	tlsConfig := &tls.Config{ServerName: p.host}

	var conn net.Conn
	var err error
	if p.tls {
		d := &tls.Dialer{Config: tlsConfig}
		conn, err = d.DialContext(ctx, "tcp", p.addr)
	} else {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", p.addr)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", p.addr, err)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	opts := &imapclient.Options{TLSConfig: tlsConfig}
	var client *imapclient.Client
	if p.tls {
		client = imapclient.New(conn, opts)
	} else {
		client, err = imapclient.NewStartTLS(conn, opts)
		if err != nil {
			stop()
			_ = conn.Close()
			return nil, fmt.Errorf("starttls with %s: %w", p.addr, err)
		}
	}

	if err := client.Login(p.username, p.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		_ = client.Close()
		stop()
		var imapErr *imap.Error
		if errors.As(err, &imapErr) {
			return nil, &AuthError{Username: p.username, Err: err}
		}
		return nil, fmt.Errorf("logging in to %s: %w", p.addr, err)
	}
	return client, nil
}

func (p *IMAPProber) Validate(ctx context.Context) error {
	client, err := p.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Status(p.mailbox, &imap.StatusOptions{NumMessages: true}).Wait(); err != nil {
		return fmt.Errorf("checking mailbox %s: %w", p.mailbox, err)
	}
	return nil
}

func (p *IMAPProber) UnreadCount(ctx context.Context) (uint, error) {
	client, err := p.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = client.Logout().Wait() }()

	data, err := client.Status(p.mailbox, &imap.StatusOptions{NumUnseen: true}).Wait()
	if err != nil {
		return 0, fmt.Errorf("status %s: %w", p.mailbox, err)
	}
	if data.NumUnseen == nil {
		return 0, fmt.Errorf("status %s: server did not report UNSEEN", p.mailbox)
	}
	return uint(*data.NumUnseen), nil
}
