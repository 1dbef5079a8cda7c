package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/unreadmail/internal/binding"
	"github.com/hamed0406/unreadmail/internal/config"
	"github.com/hamed0406/unreadmail/internal/credential"
	"github.com/hamed0406/unreadmail/internal/domain"
	"github.com/hamed0406/unreadmail/internal/eventloop"
	"github.com/hamed0406/unreadmail/internal/httpapi"
	apimw "github.com/hamed0406/unreadmail/internal/httpapi/middleware"
	"github.com/hamed0406/unreadmail/internal/l10n"
	"github.com/hamed0406/unreadmail/internal/launcher"
	"github.com/hamed0406/unreadmail/internal/logging"
	"github.com/hamed0406/unreadmail/internal/notify"
	"github.com/hamed0406/unreadmail/internal/registry"
	"github.com/hamed0406/unreadmail/internal/scheduler"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(logging.Options{
		Dir:     cfg.LogDir,
		Level:   cfg.LogLevel,
		Console: cfg.LogConsole,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loop := eventloop.New(logger)
	msgs := l10n.New(cfg.Locale)
	logger.Info("locale", zap.String("tag", msgs.Tag().String()))

	renderer, closers := buildRenderer(cfg, logger, loop, msgs)

	creds, err := openCredentials(logger)
	if err != nil {
		log.Fatal(err)
	}
	reg := registry.New(logger, loop, registry.Options{
		Path:         cfg.AccountsFile,
		Credentials:  creds,
		NewProber:    registry.IMAPProberFactory(cfg.RetryAttempts, cfg.RetryBackoff),
		ProbeTimeout: cfg.ProbeTimeout,
		Watch:        true,
	})
	closers = append(closers, reg)

	coord := binding.New(logger, renderer, launcher.New(logger), msgs)

	poller := scheduler.NewPoller(logger, reg, reg, cfg.PollInterval, cfg.ProbeTimeout, cfg.PollWorkers)
	if slack := notify.NewSlack(cfg.SlackWebhook, logger); slack != nil {
		poller.Health = scheduler.NewHealthAlerter(slack, scheduler.AlerterConfig{
			AlertOnRecovery: cfg.ProbeAlertRecovery,
			Cooldown:        cfg.ProbeAlertCooldown,
		})
	}

	loop.Post(func() {
		if poller.Health != nil {
			reg.OnAccountAdded(func(a domain.Account) { poller.Health.Track(a.ID(), a) })
			reg.OnAccountRemoved(func(a domain.Account) { poller.Health.Forget(a.ID()) })
		}
		coord.Start(reg, loop.Quit)
	})

	pollCtx, cancelPoll := context.WithCancel(context.Background())
	defer cancelPoll()
	go poller.Run(pollCtx)

	srv := startStatusAPI(cfg, logger, httpapi.LoopBackend{Loop: loop, Coordinator: coord})

	go func() {
		select {
		case <-ctx.Done():
		case <-loop.Done():
			return
		}
		logger.Info("shutdown_requested")
		callCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := eventloop.Call(callCtx, loop, func() struct{} {
			coord.Shutdown()
			return struct{}{}
		}); err != nil {
			logger.Warn("shutdown_teardown_failed", zap.Error(err))
		}
		loop.Quit()
	}()

	if err := loop.Run(context.Background()); err != nil {
		logger.Error("event_loop_failed", zap.Error(err))
	}
	cancelPoll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var errs error
	if srv != nil {
		errs = multierr.Append(errs, srv.Shutdown(shutdownCtx))
	}
	for _, c := range closers {
		errs = multierr.Append(errs, c.Close())
	}
	if errs != nil {
		logger.Warn("shutdown_incomplete", zap.Error(errs))
	}
	logger.Info("stopped")
}

// buildRenderer assembles the alert backends named in ALERT_BACKENDS. If
// none can be set up, alerts are written to the log.
func buildRenderer(cfg config.Config, logger *zap.Logger, loop *eventloop.Loop, msgs *l10n.Messages) (notify.Renderer, []io.Closer) {
	var (
		rs      notify.Multi
		closers []io.Closer
	)
	for _, name := range cfg.AlertBackends {
		switch name {
		case "desktop":
			d, err := notify.NewDesktop(msgs.AppTitle(), loop.Post, logger)
			if err != nil {
				logger.Warn("desktop_alerts_unavailable", zap.Error(err))
				continue
			}
			rs = append(rs, d)
			closers = append(closers, d)
		case "slack":
			s := notify.NewSlack(cfg.SlackWebhook, logger)
			if s == nil {
				logger.Warn("slack_alerts_unconfigured")
				continue
			}
			rs = append(rs, s)
		case "log":
			rs = append(rs, notify.Log{Logger: logger})
		default:
			logger.Warn("alert_backend_unknown", zap.String("backend", name))
		}
	}
	if len(rs) == 0 {
		logger.Warn("alert_backend_fallback", zap.String("backend", "log"))
		return notify.Log{Logger: logger}, closers
	}
	if len(rs) == 1 {
		return rs[0], closers
	}
	return rs, closers
}

func openCredentials(logger *zap.Logger) (credential.Store, error) {
	ring, err := credential.Open()
	if err != nil {
		return nil, err
	}
	logger.Info("keyring_opened")
	return ring, nil
}

func startStatusAPI(cfg config.Config, logger *zap.Logger, backend httpapi.Backend) *http.Server {
	if cfg.StatusAddr == "" {
		logger.Info("status_api_disabled")
		return nil
	}
	api := httpapi.NewServer(logger, backend)
	keys := apimw.Keys{Read: cfg.StatusTokens, Control: cfg.ControlTokens}
	srv := &http.Server{
		Addr:              cfg.StatusAddr,
		Handler:           api.Router(keys, cfg.CORSOrigins, cfg.OpenRate, 2),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("status_api_listen", zap.String("addr", cfg.StatusAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("status_api_failed", zap.Error(err))
		}
	}()
	return srv
}
