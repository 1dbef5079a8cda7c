package probe

import "context"

// Prober reads the unread-message count of one mailbox.
type Prober interface {
	// Validate connects and authenticates without reading anything.
	Validate(ctx context.Context) error
	// UnreadCount returns the number of unseen messages.
	UnreadCount(ctx context.Context) (uint, error)
}
