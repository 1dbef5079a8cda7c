// Package binding keeps one alert per live account in step with the
// account's unread count.
//
// Every exported method of Coordinator must run on the event loop.
package binding

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/hamed0406/unreadmail/internal/domain"
	"github.com/hamed0406/unreadmail/internal/launcher"
	"github.com/hamed0406/unreadmail/internal/notify"
)

// ErrUnknownAccount is returned for account ids without a binding.
var ErrUnknownAccount = errors.New("unknown account")

const actionOpen = "open"

// Messages provides the alert texts.
type Messages interface {
	Unread(n uint, displayName string) string
	Open() string
}

// Binding pairs a live account with its alert.
type Binding struct {
	account         domain.Account
	alert           notify.Alert
	sub             domain.Subscription
	lastUnreadCount uint
	torndown        bool
}

// State is a snapshot of one binding.
type State struct {
	AccountID       string `json:"id"`
	DisplayName     string `json:"display_name"`
	UnreadCount     uint   `json:"unread_count"`
	LastUnreadCount uint   `json:"last_unread_count"`
}

// Coordinator owns the bindings of all live accounts.
type Coordinator struct {
	logger   *zap.Logger
	renderer notify.Renderer
	launcher launcher.Launcher
	messages Messages

	bindings map[string]*Binding
}

// New returns a Coordinator with no bindings.
func New(
	logger *zap.Logger,
	renderer notify.Renderer,
	launcher launcher.Launcher,
	messages Messages,
) *Coordinator {
	return &Coordinator{
		logger:   logger,
		renderer: renderer,
		launcher: launcher,
		messages: messages,
		bindings: make(map[string]*Binding),
	}
}

// Start subscribes to the registry's lifecycle events and prepares it.
// A failed preparation is fatal: quit is called to stop the event loop.
func (c *Coordinator) Start(reg domain.Registry, quit func()) {
	reg.OnAccountAdded(c.AccountAdded)
	reg.OnAccountRemoved(c.AccountRemoved)
	reg.Prepare(func(err error) {
		if err != nil {
			c.logger.Error("registry_prepare_failed", zap.Error(err))
			quit()
			return
		}
		c.logger.Info("registry_prepared")
	})
}

// AccountAdded creates the account's alert and binding and starts
// following its unread count. If the alert cannot be created the account
// is left unbound for its whole lifetime.
func (c *Coordinator) AccountAdded(acct domain.Account) {
	id := acct.ID()
	if _, ok := c.bindings[id]; ok {
		c.logger.Warn("account_already_bound", zap.String("account", id))
		return
	}

	alert, err := c.renderer.Create("", "", "")
	if err != nil {
		c.logger.Warn("alert_create_failed", zap.String("account", id), zap.Error(err))
		return
	}
	alert.SetCategory(notify.CategoryEmailArrived)

	b := &Binding{account: acct, alert: alert}
	alert.AddAction(actionOpen, c.messages.Open(), func() { c.openInbox(b) })
	b.sub = acct.OnUnreadCountChanged(func() { c.unreadCountChanged(b) })
	c.bindings[id] = b

	c.logger.Info("binding_created",
		zap.String("account", id),
		zap.String("display_name", acct.DisplayName()),
	)
}

// AccountRemoved closes and releases the account's alert. Completions
// still in flight for the binding are ignored when they arrive.
func (c *Coordinator) AccountRemoved(acct domain.Account) {
	id := acct.ID()
	b, ok := c.bindings[id]
	if !ok {
		c.logger.Debug("account_not_bound", zap.String("account", id))
		return
	}
	c.teardown(id, b)
}

func (c *Coordinator) teardown(id string, b *Binding) {
	delete(c.bindings, id)
	b.torndown = true

	if err := b.alert.Close(); err != nil {
		c.logger.Warn("alert_close_failed", zap.String("account", id), zap.Error(err))
	}
	b.sub.Cancel()
	b.alert.Release()

	c.logger.Info("binding_removed", zap.String("account", id))
}

func (c *Coordinator) unreadCountChanged(b *Binding) {
	if b.torndown {
		return
	}
	name := b.account.DisplayName()
	unread := b.account.UnreadCount()

	c.logger.Info("unread_status",
		zap.String("account", b.account.ID()),
		zap.String("display_name", name),
		zap.Uint("unread_count", unread),
	)

	c.drive(b, name, unread)
	b.lastUnreadCount = unread
}

// drive applies the transition for unread to the alert. Failures are
// logged and otherwise ignored.
func (c *Coordinator) drive(b *Binding, name string, unread uint) {
	id := b.account.ID()
	t := Project(unread, b.lastUnreadCount)

	if t == TransitionClose {
		if err := b.alert.Close(); err != nil {
			c.logger.Warn("alert_close_failed", zap.String("account", id), zap.Error(err))
		}
		return
	}

	b.alert.Update(c.messages.Unread(unread, name), notify.IconMailUnread)

	// Raise only on new mail; a falling count updates the text in place.
	if t == TransitionUpdateAndRaise {
		if err := b.alert.Show(); err != nil {
			c.logger.Warn("alert_show_failed", zap.String("account", id), zap.Error(err))
		}
	}
}

func (c *Coordinator) openInbox(b *Binding) {
	if b.torndown {
		return
	}
	acct := b.account
	acct.ResolveInbox(func(loc domain.InboxLocation, err error) {
		c.inboxResolved(b, loc, err)
	})
}

func (c *Coordinator) inboxResolved(b *Binding, loc domain.InboxLocation, err error) {
	if b.torndown {
		c.logger.Debug("inbox_resolved_after_removal")
		return
	}
	id := b.account.ID()
	if err != nil {
		c.logger.Warn("inbox_resolve_failed", zap.String("account", id), zap.Error(err))
		return
	}

	switch loc.Format {
	case domain.InboxURI:
		if !c.launcher.LaunchURI(loc.Value) {
			c.logger.Warn("inbox_launch_failed", zap.String("account", id), zap.String("uri", loc.Value))
		}
	default:
		c.logger.Warn("inbox_format_unsupported",
			zap.String("account", id),
			zap.Stringer("format", loc.Format),
		)
	}
}

// OpenInbox runs the open action of the account's alert.
func (c *Coordinator) OpenInbox(id string) error {
	b, ok := c.bindings[id]
	if !ok {
		return ErrUnknownAccount
	}
	c.openInbox(b)
	return nil
}

// Snapshot lists the live bindings ordered by account id.
func (c *Coordinator) Snapshot() []State {
	out := make([]State, 0, len(c.bindings))
	for id, b := range c.bindings {
		out = append(out, State{
			AccountID:       id,
			DisplayName:     b.account.DisplayName(),
			UnreadCount:     b.account.UnreadCount(),
			LastUnreadCount: b.lastUnreadCount,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}

// Shutdown tears down every binding, closing all visible alerts.
func (c *Coordinator) Shutdown() {
	for id, b := range c.bindings {
		c.teardown(id, b)
	}
}
