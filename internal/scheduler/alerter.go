package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type AlerterConfig struct {
	AlertOnRecovery bool
	Cooldown        time.Duration
}

type healthRecord struct {
	ref        any
	up         bool
	lastSentAt time.Time
}

// HealthAlerter sends a message when an account's probe starts failing and,
// optionally, when it recovers. Repeated failure notices for one account are
// suppressed for Cooldown.
type HealthAlerter struct {
	notifier interface {
		Send(context.Context, string, string) error
	}
	cfg AlerterConfig
	now func() time.Time

	mu    sync.Mutex
	state map[string]healthRecord
}

func NewHealthAlerter(
	notifier interface {
		Send(context.Context, string, string) error
	},
	cfg AlerterConfig,
) *HealthAlerter {
	return &HealthAlerter{
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
		state:    make(map[string]healthRecord),
	}
}

// Track starts following the account identified by ref under id. Observe
// ignores targets whose ref is not the one tracked for their id.
func (a *HealthAlerter) Track(id string, ref any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rec, ok := a.state[id]; ok && rec.ref == ref {
		return
	}
	a.state[id] = healthRecord{ref: ref, up: true}
}

// Observe records one probe outcome for t. Safe for concurrent use.
func (a *HealthAlerter) Observe(ctx context.Context, t Target, probeErr error) {
	id, name := t.ID, t.Name
	up := probeErr == nil
	now := a.now()

	a.mu.Lock()
	rec, ok := a.state[id]
	if !ok || rec.ref != t.Ref {
		a.mu.Unlock()
		return
	}

	// An account starts out healthy; only a change is worth a message.
	stateChanged := rec.up != up

	cooled := rec.lastSentAt.IsZero() || now.Sub(rec.lastSentAt) >= a.cfg.Cooldown

	downAlert := stateChanged && !up && cooled
	recoveryAlert := stateChanged && up && a.cfg.AlertOnRecovery // bypass cooldown

	send := downAlert || recoveryAlert
	if send {
		rec.lastSentAt = now
	}
	rec.up = up
	a.state[id] = rec
	a.mu.Unlock()

	if !send {
		return
	}

	title := "🔴 Mailbox unreachable"
	text := fmt.Sprintf("Account: %s\nError: %v\nChecked: %s", name, probeErr, now.Format(time.RFC3339))
	if up {
		title = "🟢 Mailbox reachable again"
		text = fmt.Sprintf("Account: %s\nChecked: %s", name, now.Format(time.RFC3339))
	}

	// Best-effort send
	_ = a.notifier.Send(ctx, title, text)
}

// Forget drops the record for a removed account.
func (a *HealthAlerter) Forget(id string) {
	a.mu.Lock()
	delete(a.state, id)
	a.mu.Unlock()
}
