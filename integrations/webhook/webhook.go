// Package webhook forwards store changes from the emulator to HTTP
// endpoints, e.g. to announce new high scores in a chat channel.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"catchkit/core"
	"catchkit/realtime"
)

// Sink posts change events to configured HTTP endpoints.
// Delivery is synchronous and best effort; failures are logged only.
type Sink struct {
	client    *http.Client
	endpoints []string
	filter    func(core.Change) bool
	log       *slog.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithClient overrides the HTTP client (defaults to 2s timeout).
func WithClient(c *http.Client) Option {
	return func(s *Sink) {
		if c != nil {
			s.client = c
		}
	}
}

// WithFilter selects which changes are posted. The default posts highscore
// writes only.
func WithFilter(f func(core.Change) bool) Option {
	return func(s *Sink) {
		if f != nil {
			s.filter = f
		}
	}
}

// WithLogger sets the logger for delivery failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) {
		if l != nil {
			s.log = l
		}
	}
}

// HighscoreChanges matches puts of users/{id}/highscore.
func HighscoreChanges(c core.Change) bool {
	return c.Kind == core.ChangePut && c.Path.Base() == core.FieldHighscore
}

// New creates a webhook sink.
func New(endpoints []string, opts ...Option) *Sink {
	s := &Sink{
		client: &http.Client{Timeout: 2 * time.Second},
		filter: HighscoreChanges,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.endpoints = append([]string{}, endpoints...)
	return s
}

// Enabled reports whether any endpoint is configured.
func (s *Sink) Enabled() bool { return len(s.endpoints) > 0 }

// OnChange posts c to every endpoint if it passes the filter.
func (s *Sink) OnChange(ctx context.Context, c core.Change) {
	if !s.Enabled() || !s.filter(c) {
		return
	}
	body, err := json.Marshal(c)
	if err != nil {
		s.log.Warn("webhook encode failed", "error", err)
		return
	}
	for _, ep := range s.endpoints {
		if err := s.post(ctx, ep, body); err != nil {
			s.log.Warn("webhook delivery failed", "endpoint", ep, "path", c.Path.String(), "error", err)
		}
	}
}

func (s *Sink) post(ctx context.Context, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// Run forwards hub changes until ctx is done.
func (s *Sink) Run(ctx context.Context, hub *realtime.Hub) {
	if !s.Enabled() {
		return
	}
	id, ch := hub.Subscribe(core.UsersPath(), 64)
	defer hub.Unsubscribe(id)
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-ch:
			if !ok {
				return
			}
			s.OnChange(ctx, c)
		}
	}
}
