package domain

// InboxFormat tags how an InboxLocation value must be interpreted.
type InboxFormat int

const (
	// InboxURI is a location that the platform default handler can open.
	InboxURI InboxFormat = iota
	// InboxFormPost is a web form that has to be submitted with POST.
	InboxFormPost
)

func (f InboxFormat) String() string {
	switch f {
	case InboxURI:
		return "uri"
	case InboxFormPost:
		return "form_post"
	default:
		return "unknown"
	}
}

// InboxLocation says where the unread mail of an account can be viewed.
type InboxLocation struct {
	Format InboxFormat `json:"format"`
	Value  string      `json:"value"`
}

// Subscription is returned by observer registrations. Cancel is idempotent.
type Subscription interface {
	Cancel()
}

// Account is a messaging identity with a live unread count.
//
// All methods are called from the event loop. Change notifications and
// ResolveInbox completions are delivered on the event loop too.
type Account interface {
	ID() string
	DisplayName() string
	UnreadCount() uint

	// OnUnreadCountChanged registers fn to run after every change of
	// UnreadCount.
	OnUnreadCountChanged(fn func()) Subscription

	// ResolveInbox looks up the inbox location asynchronously. done runs
	// at most once, as a later event; it may never run.
	ResolveInbox(done func(InboxLocation, error))
}

// Registry discovers accounts and reports their lifecycle.
type Registry interface {
	// Prepare readies the registry. done runs at most once, on the event loop.
	Prepare(done func(error))
	OnAccountAdded(fn func(Account))
	OnAccountRemoved(fn func(Account))
}

// SubscriptionFunc adapts a plain function to Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Cancel() { f() }
