package binding

import (
	"errors"

	"github.com/hamed0406/unreadmail/internal/domain"
	"github.com/hamed0406/unreadmail/internal/notify"
)

// ---- account ----

type resolveCall struct {
	done func(domain.InboxLocation, error)
}

type fakeAccount struct {
	id, name string
	unread   uint
	subs     map[int]func()
	nextSub  int
	pending  []resolveCall
}

func newAccount(id, name string) *fakeAccount {
	return &fakeAccount{id: id, name: name, subs: map[int]func(){}}
}

func (a *fakeAccount) ID() string          { return a.id }
func (a *fakeAccount) DisplayName() string { return a.name }
func (a *fakeAccount) UnreadCount() uint   { return a.unread }

func (a *fakeAccount) OnUnreadCountChanged(fn func()) domain.Subscription {
	key := a.nextSub
	a.nextSub++
	a.subs[key] = fn
	return domain.SubscriptionFunc(func() { delete(a.subs, key) })
}

func (a *fakeAccount) ResolveInbox(done func(domain.InboxLocation, error)) {
	a.pending = append(a.pending, resolveCall{done: done})
}

// setUnread changes the count and notifies subscribers, like the registry does.
func (a *fakeAccount) setUnread(n uint) {
	a.unread = n
	for _, fn := range a.subs {
		fn()
	}
}

// complete delivers the oldest pending inbox resolution.
func (a *fakeAccount) complete(loc domain.InboxLocation, err error) {
	call := a.pending[0]
	a.pending = a.pending[1:]
	call.done(loc, err)
}

// ---- renderer ----

type fakeAlert struct {
	ops      []string
	body     string
	icon     string
	category string
	actions  map[string]func()
	released bool
	showErr  error
	closeErr error
}

func (f *fakeAlert) SetCategory(tag string) { f.category = tag }

func (f *fakeAlert) AddAction(id, label string, onInvoke func()) {
	f.actions[id] = onInvoke
}

func (f *fakeAlert) Update(body, icon string) {
	f.ops = append(f.ops, "update")
	f.body, f.icon = body, icon
}

func (f *fakeAlert) Show() error {
	f.ops = append(f.ops, "show")
	return f.showErr
}

func (f *fakeAlert) Close() error {
	f.ops = append(f.ops, "close")
	return f.closeErr
}

func (f *fakeAlert) Release() {
	f.ops = append(f.ops, "release")
	f.released = true
}

// invoke simulates the user pressing a button.
func (f *fakeAlert) invoke(id string) {
	if fn := f.actions[id]; fn != nil && !f.released {
		fn()
	}
}

func (f *fakeAlert) resetOps() { f.ops = nil }

type fakeRenderer struct {
	alerts []*fakeAlert
	fail   error
}

func (r *fakeRenderer) Create(title, body, icon string) (notify.Alert, error) {
	if r.fail != nil {
		return nil, r.fail
	}
	a := &fakeAlert{body: body, icon: icon, actions: map[string]func(){}}
	r.alerts = append(r.alerts, a)
	return a, nil
}

func (r *fakeRenderer) live() int {
	n := 0
	for _, a := range r.alerts {
		if !a.released {
			n++
		}
	}
	return n
}

// ---- launcher ----

type fakeLauncher struct {
	uris []string
	fail bool
}

func (l *fakeLauncher) LaunchURI(uri string) bool {
	l.uris = append(l.uris, uri)
	return !l.fail
}

// ---- registry ----

type fakeRegistry struct {
	added    func(domain.Account)
	removed  func(domain.Account)
	prepared func(error)
}

func (r *fakeRegistry) Prepare(done func(error))                 { r.prepared = done }
func (r *fakeRegistry) OnAccountAdded(fn func(domain.Account))   { r.added = fn }
func (r *fakeRegistry) OnAccountRemoved(fn func(domain.Account)) { r.removed = fn }

var errBoom = errors.New("boom")
