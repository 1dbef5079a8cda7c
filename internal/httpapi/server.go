// Package httpapi serves the local status API of the daemon.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hamed0406/unreadmail/internal/binding"
	"github.com/hamed0406/unreadmail/internal/eventloop"
	apimw "github.com/hamed0406/unreadmail/internal/httpapi/middleware"
)

// Backend is what the API reads from and acts on.
type Backend interface {
	Accounts(ctx context.Context) ([]binding.State, error)
	OpenInbox(ctx context.Context, id string) error
}

type Server struct {
	Logger  *zap.Logger
	Backend Backend
}

func NewServer(l *zap.Logger, b Backend) *Server {
	return &Server{Logger: l, Backend: b}
}

// Router builds the HTTP handler. openPerMin limits how often a client may
// open inboxes; zero disables the limit.
func (s *Server) Router(keys apimw.Keys, allowedOrigins []string, openPerMin, openBurst int) http.Handler {
	r := chi.NewRouter()

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.With(apimw.RequireRead(keys)).Handle("/metrics", promhttp.Handler())

	r.Route("/api/accounts", func(r chi.Router) {
		r.With(apimw.RequireRead(keys)).Get("/", s.handleListAccounts)
		r.With(
			apimw.RequireControl(keys),
			apimw.RateLimit(openPerMin, openBurst),
		).Post("/{id}/open", s.handleOpenInbox)
	})

	return r
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	states, err := s.Backend.Accounts(r.Context())
	if err != nil {
		s.Logger.Warn("api_list_failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "unavailable")
		return
	}
	writeJSON(w, http.StatusOK, states)
}

func (s *Server) handleOpenInbox(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.Backend.OpenInbox(r.Context(), id)
	switch {
	case errors.Is(err, binding.ErrUnknownAccount):
		writeError(w, http.StatusNotFound, "unknown account")
		return
	case err != nil:
		s.Logger.Warn("api_open_failed", zap.String("account", id), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "unavailable")
		return
	}
	s.Logger.Info("api_open_requested", zap.String("account", id))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "opening"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// LoopBackend runs API requests inside the event loop that owns the
// coordinator.
type LoopBackend struct {
	Loop        *eventloop.Loop
	Coordinator *binding.Coordinator
}

func (b LoopBackend) Accounts(ctx context.Context) ([]binding.State, error) {
	return eventloop.Call(ctx, b.Loop, b.Coordinator.Snapshot)
}

func (b LoopBackend) OpenInbox(ctx context.Context, id string) error {
	openErr, err := eventloop.Call(ctx, b.Loop, func() error { return b.Coordinator.OpenInbox(id) })
	if err != nil {
		return err
	}
	return openErr
}
