package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/unreadmail/internal/probe"
)

// Target is one account to poll. Ref identifies the live account the
// target was listed from; a result is only applied while that account is
// still the one registered under ID.
type Target struct {
	ID     string
	Name   string
	Prober probe.Prober
	Ref    any
}

// TargetLister returns the accounts to poll on each pass.
type TargetLister interface {
	List(ctx context.Context) ([]Target, error)
}

// Sink receives poll results. Report is called from poll goroutines.
type Sink interface {
	Report(t Target, unread uint, err error)
}

type Poller struct {
	Logger      *zap.Logger
	Targets     TargetLister
	Sink        Sink
	Health      *HealthAlerter // optional
	Interval    time.Duration
	Timeout     time.Duration
	Concurrency int
}

func NewPoller(
	logger *zap.Logger,
	targets TargetLister,
	sink Sink,
	interval time.Duration,
	timeout time.Duration,
	concurrency int,
) *Poller {
	if concurrency < 1 {
		concurrency = 1
	}
	if interval < 0 {
		interval = 0
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Poller{
		Logger:      logger,
		Targets:     targets,
		Sink:        sink,
		Interval:    interval,
		Timeout:     timeout,
		Concurrency: concurrency,
	}
}

// Run polls every target once per Interval until ctx is cancelled. The
// first pass happens one Interval after start; accounts report their
// initial count when they are added.
func (p *Poller) Run(ctx context.Context) {
	if p.Interval == 0 {
		// disabled
		p.Logger.Info("poller_disabled")
		return
	}
	t := time.NewTicker(p.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			p.Logger.Info("poller_stopped")
			return
		case <-t.C:
			p.runOnce(ctx)
		}
	}
}

func (p *Poller) runOnce(ctx context.Context) {
	ts, err := p.Targets.List(ctx)
	if err != nil {
		p.Logger.Warn("poller_list_error", zap.Error(err))
		return
	}
	if len(ts) == 0 {
		return
	}

	sem := make(chan struct{}, p.Concurrency)
	var wg sync.WaitGroup

	for _, tgt := range ts {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() { <-sem }()
			defer wg.Done()

			cctx, cancel := context.WithTimeout(ctx, p.Timeout)
			defer cancel()

			start := time.Now()
			n, err := tgt.Prober.UnreadCount(cctx)
			result := "ok"
			if err != nil {
				result = "error"
			}
			metricProbe.WithLabelValues(result).Observe(time.Since(start).Seconds())
			if err != nil {
				p.Logger.Warn("poller_probe_error",
					zap.String("account", tgt.ID),
					zap.Bool("auth", probe.IsAuthError(err)),
					zap.Error(err),
				)
			} else {
				p.Logger.Debug("poller_checked",
					zap.String("account", tgt.ID),
					zap.Uint("unread", n),
				)
			}
			p.Sink.Report(tgt, n, err)
			if p.Health != nil {
				p.Health.Observe(ctx, tgt, err)
			}
		}()
	}

	wg.Wait()
}
