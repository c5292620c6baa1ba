package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultIdentityURL is the hosted identity toolkit endpoint.
const DefaultIdentityURL = "https://identitytoolkit.googleapis.com/v1"

// Config points the clients at a hosted project or at the local emulator.
type Config struct {
	DatabaseURL string        `json:"database_url"`
	IdentityURL string        `json:"identity_url"`
	APIKey      string        `json:"api_key"`
	Timeout     time.Duration `json:"timeout"`
}

// Option configures the clients.
type Option func(*transport)

// transport is the HTTP plumbing shared by Database and Auth.
type transport struct {
	httpClient *http.Client
	headers    http.Header
}

func newTransport(timeout time.Duration, opts []Option) *transport {
	t := &transport{
		httpClient: &http.Client{Timeout: timeout},
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(t *transport) {
		if h != nil {
			t.httpClient = h
		}
	}
}

// WithHeader sets an arbitrary header applied to every call.
func WithHeader(k, v string) Option {
	return func(t *transport) {
		if k != "" {
			t.headers.Set(k, v)
		}
	}
}

func (t *transport) do(ctx context.Context, method, u string, body any, extra http.Header) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vals := range t.headers {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	for k, vals := range extra {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	return t.httpClient.Do(req)
}

// Session holds the id token of the signed-in account. Auth fills it and
// Database sends it with every request.
type Session struct {
	mu    sync.RWMutex
	token string
}

func (s *Session) IDToken() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) setToken(tok string) {
	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()
}

// ErrStatus is returned for non-2xx responses from the database.
var ErrStatus = errors.New("unexpected status")

// StatusError carries the database's error body.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

func (e *StatusError) Is(target error) bool { return target == ErrStatus }

func statusError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
	}
	return &StatusError{Code: resp.StatusCode, Message: body.Error}
}

func deriveWSURL(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		// leave as-is for custom schemes
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}
