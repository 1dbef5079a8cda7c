package registry

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/hamed0406/unreadmail/internal/config"
	"github.com/hamed0406/unreadmail/internal/domain"
	"github.com/hamed0406/unreadmail/internal/eventloop"
	"github.com/hamed0406/unreadmail/internal/probe"
)

// Account is a prepared IMAP account. All fields are owned by the event
// loop; methods must be called from it.
type Account struct {
	cfg    config.Account
	prober probe.Prober
	loop   *eventloop.Loop
	ctx    context.Context

	unread  uint
	subs    map[int]func()
	nextSub int
}

var _ domain.Account = (*Account)(nil)

func newAccount(ctx context.Context, loop *eventloop.Loop, cfg config.Account, p probe.Prober) *Account {
	return &Account{
		cfg:    cfg,
		prober: p,
		loop:   loop,
		ctx:    ctx,
		subs:   make(map[int]func()),
	}
}

func (a *Account) ID() string          { return a.cfg.ID }
func (a *Account) DisplayName() string { return a.cfg.Name }
func (a *Account) UnreadCount() uint   { return a.unread }

// Config returns the definition the account was created from.
func (a *Account) Config() config.Account { return a.cfg }

// OnUnreadCountChanged registers fn to run whenever the unread count
// changes. Callbacks run in registration order.
func (a *Account) OnUnreadCountChanged(fn func()) domain.Subscription {
	key := a.nextSub
	a.nextSub++
	a.subs[key] = fn
	return domain.SubscriptionFunc(func() { delete(a.subs, key) })
}

// ResolveInbox works out where the account's inbox can be opened. The
// result is delivered as a later event.
func (a *Account) ResolveInbox(done func(domain.InboxLocation, error)) {
	cfg := a.cfg
	eventloop.Async(a.loop, a.ctx, func(context.Context) (domain.InboxLocation, error) {
		return inboxLocation(cfg)
	}, done)
}

func (a *Account) setUnreadCount(n uint) {
	if n == a.unread {
		return
	}
	a.unread = n
	metricUnread.WithLabelValues(a.cfg.ID).Set(float64(n))

	keys := make([]int, 0, len(a.subs))
	for k := range a.subs {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		// an earlier callback may have cancelled this one
		if fn, ok := a.subs[k]; ok {
			fn()
		}
	}
}

func inboxLocation(cfg config.Account) (domain.InboxLocation, error) {
	if cfg.InboxURL == "" {
		u := url.URL{
			Scheme: "imap",
			User:   url.User(cfg.Username),
			Host:   cfg.Addr(),
			Path:   "/" + cfg.Mailbox,
		}
		return domain.InboxLocation{Format: domain.InboxURI, Value: u.String()}, nil
	}

	u, err := url.Parse(cfg.InboxURL)
	if err != nil {
		return domain.InboxLocation{}, fmt.Errorf("inbox url for %s: %w", cfg.ID, err)
	}
	if u.Scheme == "" {
		return domain.InboxLocation{}, fmt.Errorf("inbox url for %s has no scheme", cfg.ID)
	}

	format := domain.InboxURI
	if cfg.InboxMethod == "post" {
		format = domain.InboxFormPost
	}
	return domain.InboxLocation{Format: format, Value: u.String()}, nil
}
