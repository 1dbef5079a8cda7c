package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Slack posts alerts to an incoming webhook. Messages cannot be withdrawn,
// so Close only forgets the alert, and actions are not offered.
type Slack struct {
	Webhook string
	Client  *http.Client
	Logger  *zap.Logger
}

func NewSlack(webhook string, logger *zap.Logger) *Slack {
	if webhook == "" {
		return nil
	}
	return &Slack{
		Webhook: webhook,
		Client:  &http.Client{Timeout: 10 * time.Second},
		Logger:  logger,
	}
}

type slackPayload struct {
	Text string `json:"text"`
}

func (s *Slack) Send(ctx context.Context, title, text string) error {
	if s == nil || s.Webhook == "" {
		return errors.New("slack disabled")
	}
	msg := text
	if title != "" {
		msg = "*" + title + "*\n" + text
	}
	body, _ := json.Marshal(slackPayload{Text: msg})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.Webhook, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return errors.New("slack non-2xx")
	}
	return nil
}

func (s *Slack) Create(title, body, icon string) (Alert, error) {
	if s == nil || s.Webhook == "" {
		return nil, errors.New("slack disabled")
	}
	return &slackAlert{content: &content{title: title, body: body, icon: icon}, s: s}, nil
}

type slackAlert struct {
	*content
	s *Slack
}

// Show posts the current body in the background; delivery failures are
// logged because the event loop must not wait on the network.
func (a *slackAlert) Show() error {
	if a.released {
		return ErrAlertReleased
	}
	title, body := a.title, a.body
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.s.Client.Timeout)
		defer cancel()
		if err := a.s.Send(ctx, title, body); err != nil {
			a.s.Logger.Warn("slack_send_failed", zap.Error(err))
		}
	}()
	return nil
}

func (a *slackAlert) Close() error {
	if a.released {
		return ErrAlertReleased
	}
	return nil
}

func (a *slackAlert) Release() { a.release() }
