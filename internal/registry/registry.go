// Package registry discovers IMAP accounts from the accounts file, prepares
// a connection to each and reports them as added or removed.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/unreadmail/internal/config"
	"github.com/hamed0406/unreadmail/internal/credential"
	"github.com/hamed0406/unreadmail/internal/domain"
	"github.com/hamed0406/unreadmail/internal/eventloop"
	"github.com/hamed0406/unreadmail/internal/probe"
	"github.com/hamed0406/unreadmail/internal/scheduler"
)

var (
	// ErrNoPassword is returned when the keyring holds no password for an account.
	ErrNoPassword = errors.New("no password stored")

	// ErrAlreadyPrepared is returned by a second call to Prepare.
	ErrAlreadyPrepared = errors.New("registry already prepared")
)

// ProberFactory builds the prober for one account.
type ProberFactory func(cfg config.Account, password string) probe.Prober

// IMAPProberFactory returns a factory for IMAP probers that retry failed
// counts attempts times with backoff between tries.
func IMAPProberFactory(attempts int, backoff time.Duration) ProberFactory {
	return func(cfg config.Account, password string) probe.Prober {
		return &probe.RetryProber{
			Inner:    probe.NewIMAPProber(cfg.Addr(), cfg.Host, cfg.Username, password, cfg.Mailbox, cfg.TLS),
			Attempts: attempts,
			Backoff:  backoff,
		}
	}
}

type Options struct {
	Path         string
	Credentials  credential.Store
	NewProber    ProberFactory
	ProbeTimeout time.Duration

	// Watch reloads the accounts file whenever it changes.
	Watch         bool
	DebounceDelay time.Duration
}

// attempt is an account being prepared. A completion whose attempt is no
// longer pending is stale and dropped.
type attempt struct {
	cfg config.Account
}

type connected struct {
	prober probe.Prober
	unread uint
}

// Registry implements domain.Registry on top of the accounts file. Apart
// from List, Report and Close its methods must be called from the loop.
type Registry struct {
	logger *zap.Logger
	loop   *eventloop.Loop
	opts   Options

	ctx    context.Context
	cancel context.CancelFunc

	// loop-owned
	accounts  map[string]*Account
	pending   map[string]*attempt
	prepared  bool
	onAdded   []func(domain.Account)
	onRemoved []func(domain.Account)

	watcher *fileWatcher
}

var (
	_ domain.Registry        = (*Registry)(nil)
	_ scheduler.TargetLister = (*Registry)(nil)
	_ scheduler.Sink         = (*Registry)(nil)
)

func New(logger *zap.Logger, loop *eventloop.Loop, opts Options) *Registry {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 30 * time.Second
	}
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = defaultDebounceDelay
	}
	if opts.NewProber == nil {
		opts.NewProber = IMAPProberFactory(1, 0)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		logger:   logger,
		loop:     loop,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		accounts: make(map[string]*Account),
		pending:  make(map[string]*attempt),
	}
}

func (r *Registry) OnAccountAdded(fn func(domain.Account))   { r.onAdded = append(r.onAdded, fn) }
func (r *Registry) OnAccountRemoved(fn func(domain.Account)) { r.onRemoved = append(r.onRemoved, fn) }

// Prepare loads the accounts file and starts watching it. done is called
// once. Accounts are reported through OnAccountAdded as each one finishes
// connecting, possibly after done.
func (r *Registry) Prepare(done func(error)) {
	if r.prepared {
		done(ErrAlreadyPrepared)
		return
	}
	r.prepared = true

	type loaded struct {
		accounts []config.Account
		watcher  *fileWatcher
	}
	eventloop.Async(r.loop, r.ctx, func(context.Context) (loaded, error) {
		accts, err := config.LoadAccounts(r.opts.Path)
		if err != nil {
			return loaded{}, err
		}
		var w *fileWatcher
		if r.opts.Watch {
			w, err = watchFile(r.logger, r.opts.Path, r.opts.DebounceDelay, func() { r.loop.Post(r.Reload) })
			if err != nil {
				return loaded{}, err
			}
		}
		return loaded{accounts: accts, watcher: w}, nil
	}, func(l loaded, err error) {
		if err != nil {
			done(fmt.Errorf("preparing registry: %w", err))
			return
		}
		if err := r.ctx.Err(); err != nil {
			// closed while loading
			_ = l.watcher.Close()
			done(fmt.Errorf("preparing registry: %w", err))
			return
		}
		r.watcher = l.watcher
		r.logger.Info("accounts_loaded",
			zap.String("path", r.opts.Path),
			zap.Int("count", len(l.accounts)),
		)
		r.apply(l.accounts)
		done(nil)
	})
}

// Reload re-reads the accounts file and reconciles the live set with it.
// A file that fails to load leaves the live set unchanged.
func (r *Registry) Reload() {
	eventloop.Async(r.loop, r.ctx, func(context.Context) ([]config.Account, error) {
		return config.LoadAccounts(r.opts.Path)
	}, func(accts []config.Account, err error) {
		if err != nil {
			r.logger.Warn("accounts_reload_failed", zap.String("path", r.opts.Path), zap.Error(err))
			return
		}
		r.logger.Info("accounts_reloaded", zap.Int("count", len(accts)))
		r.apply(accts)
	})
}

func (r *Registry) apply(accts []config.Account) {
	want := make(map[string]config.Account, len(accts))
	for _, a := range accts {
		want[a.ID] = a
	}

	for _, id := range sortedKeys(r.accounts) {
		if cfg, ok := want[id]; !ok || cfg != r.accounts[id].cfg {
			r.remove(id)
		}
	}
	for id, at := range r.pending {
		if cfg, ok := want[id]; !ok || cfg != at.cfg {
			delete(r.pending, id)
		}
	}

	for _, cfg := range accts {
		if _, ok := r.accounts[cfg.ID]; ok {
			continue
		}
		if _, ok := r.pending[cfg.ID]; ok {
			continue
		}
		r.connect(cfg)
	}
}

func (r *Registry) connect(cfg config.Account) {
	at := &attempt{cfg: cfg}
	r.pending[cfg.ID] = at

	eventloop.Async(r.loop, r.ctx, func(ctx context.Context) (connected, error) {
		password, err := r.opts.Credentials.Get(cfg.PasswordKey())
		if errors.Is(err, credential.ErrNotFound) {
			return connected{}, fmt.Errorf("account %s: %w", cfg.ID, ErrNoPassword)
		}
		if err != nil {
			return connected{}, fmt.Errorf("account %s: %w", cfg.ID, err)
		}

		p := r.opts.NewProber(cfg, password)
		ctx, cancel := context.WithTimeout(ctx, r.opts.ProbeTimeout)
		defer cancel()
		if err := p.Validate(ctx); err != nil {
			return connected{}, fmt.Errorf("account %s: %w", cfg.ID, err)
		}
		n, err := p.UnreadCount(ctx)
		if err != nil {
			return connected{}, fmt.Errorf("account %s: %w", cfg.ID, err)
		}
		return connected{prober: p, unread: n}, nil
	}, func(res connected, err error) {
		if r.pending[cfg.ID] != at {
			r.logger.Debug("account_prepare_stale", zap.String("account", cfg.ID))
			return
		}
		delete(r.pending, cfg.ID)

		if err != nil {
			metricPrepare.WithLabelValues(prepareResult(err)).Inc()
			r.logger.Warn("account_prepare_failed",
				zap.String("account", cfg.ID),
				zap.Bool("auth", probe.IsAuthError(err)),
				zap.Bool("no_password", errors.Is(err, ErrNoPassword)),
				zap.Error(err),
			)
			return
		}
		metricPrepare.WithLabelValues("ok").Inc()
		r.add(newAccount(r.ctx, r.loop, cfg, res.prober), res.unread)
	})
}

func prepareResult(err error) string {
	switch {
	case probe.IsAuthError(err):
		return "auth"
	case errors.Is(err, ErrNoPassword):
		return "no_password"
	}
	return "error"
}

func (r *Registry) add(a *Account, unread uint) {
	r.accounts[a.ID()] = a
	r.logger.Info("account_added", zap.String("account", a.ID()), zap.String("host", a.cfg.Host))
	for _, fn := range r.onAdded {
		fn(a)
	}
	a.setUnreadCount(unread)
}

func (r *Registry) remove(id string) {
	a := r.accounts[id]
	delete(r.accounts, id)
	metricUnread.DeleteLabelValues(id)
	r.logger.Info("account_removed", zap.String("account", id))
	for _, fn := range r.onRemoved {
		fn(a)
	}
}

// List returns a poll target per live account. Safe to call from any
// goroutine.
func (r *Registry) List(ctx context.Context) ([]scheduler.Target, error) {
	return eventloop.Call(ctx, r.loop, func() []scheduler.Target {
		out := make([]scheduler.Target, 0, len(r.accounts))
		for _, id := range sortedKeys(r.accounts) {
			a := r.accounts[id]
			out = append(out, scheduler.Target{ID: id, Name: a.DisplayName(), Prober: a.prober, Ref: a})
		}
		return out
	})
}

// Report applies a polled unread count. Failed polls keep the last known
// count, and results for an account that was removed or replaced since t
// was listed are dropped. Safe to call from any goroutine.
func (r *Registry) Report(t scheduler.Target, unread uint, err error) {
	if err != nil {
		return
	}
	r.loop.Post(func() {
		a, ok := r.accounts[t.ID]
		if !ok || t.Ref != any(a) {
			r.logger.Debug("poll_result_stale", zap.String("account", t.ID))
			return
		}
		a.setUnreadCount(unread)
	})
}

// Close stops the file watcher and cancels work still in flight.
func (r *Registry) Close() error {
	r.cancel()
	w, err := eventloop.Call(context.Background(), r.loop, func() *fileWatcher { return r.watcher })
	if err != nil {
		// loop already stopped; nothing else can touch the watcher
		w = r.watcher
	}
	return w.Close()
}

func sortedKeys(m map[string]*Account) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
