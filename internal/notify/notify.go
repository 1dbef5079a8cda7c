// Package notify shows unread-mail alerts on the desktop, in Slack or in the log.
package notify

import (
	"errors"

	"go.uber.org/multierr"
)

// Category and icon names understood by freedesktop notification servers.
const (
	CategoryEmailArrived = "email.arrived"
	IconMailUnread       = "mail-unread"
)

// ErrAlertReleased is returned by Show and Close after Release.
var ErrAlertReleased = errors.New("alert released")

// Alert is one user-visible notification. Alerts are not safe for
// concurrent use; callers drive them from the event loop.
type Alert interface {
	SetCategory(tag string)
	// AddAction attaches a button. onInvoke runs on the event loop.
	AddAction(id, label string, onInvoke func())
	// Update changes the content locally. It is pushed by the next Show.
	Update(body, icon string)
	// Show makes the alert visible, raising it if it already is.
	Show() error
	// Close withdraws a visible alert. Closing a hidden alert is a no-op.
	Close() error
	// Release frees the alert. Actions no longer fire afterwards.
	Release()
}

// Renderer creates alerts.
type Renderer interface {
	Create(title, body, icon string) (Alert, error)
}

// Action is a button on an alert.
type Action struct {
	ID       string
	Label    string
	OnInvoke func()
}

// content is the state every renderer keeps per alert.
type content struct {
	title    string
	body     string
	icon     string
	category string
	actions  []Action
	released bool
}

func (c *content) SetCategory(tag string) { c.category = tag }

func (c *content) AddAction(id, label string, onInvoke func()) {
	c.actions = append(c.actions, Action{ID: id, Label: label, OnInvoke: onInvoke})
}

func (c *content) Update(body, icon string) {
	c.body = body
	c.icon = icon
}

// invoke runs the action with the given id. It reports whether one ran.
func (c *content) invoke(id string) bool {
	if c.released {
		return false
	}
	for _, a := range c.actions {
		if a.ID == id && a.OnInvoke != nil {
			a.OnInvoke()
			return true
		}
	}
	return false
}

func (c *content) release() {
	c.released = true
	c.actions = nil
}

// Multi fans every alert out to several renderers.
type Multi []Renderer

// Create returns an alert backed by every renderer that could create one.
// It fails only when none could.
func (m Multi) Create(title, body, icon string) (Alert, error) {
	var out multiAlert
	var errs error
	for _, r := range m {
		if r == nil {
			continue
		}
		a, err := r.Create(title, body, icon)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		out = append(out, a)
	}
	if len(out) == 0 {
		if errs == nil {
			errs = errors.New("no alert renderer configured")
		}
		return nil, errs
	}
	return out, nil
}

type multiAlert []Alert

func (m multiAlert) SetCategory(tag string) {
	for _, a := range m {
		a.SetCategory(tag)
	}
}

func (m multiAlert) AddAction(id, label string, onInvoke func()) {
	for _, a := range m {
		a.AddAction(id, label, onInvoke)
	}
}

func (m multiAlert) Update(body, icon string) {
	for _, a := range m {
		a.Update(body, icon)
	}
}

func (m multiAlert) Show() error {
	var err error
	for _, a := range m {
		err = multierr.Append(err, a.Show())
	}
	return err
}

func (m multiAlert) Close() error {
	var err error
	for _, a := range m {
		err = multierr.Append(err, a.Close())
	}
	return err
}

func (m multiAlert) Release() {
	for _, a := range m {
		a.Release()
	}
}
