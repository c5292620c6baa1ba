// Package client assembles the engines for a game: it picks the account
// and shared stores, the presenter and the queue settings.
package client

import (
	"context"
	"errors"
	"log/slog"

	"catchkit/adapters/firebase"
	mem "catchkit/adapters/memory"
	"catchkit/config"
	"catchkit/core"
	"catchkit/engine"
)

// ErrNoEmulator is returned by Watch when no emulator URL is configured.
var ErrNoEmulator = errors.New("change streaming needs a catchkit emulator")

// Option configures the client builder.
type Option func(*settings)

type settings struct {
	accounts    engine.AccountStore
	store       engine.SharedStore
	ui          engine.Presenter
	opts        engine.Options
	remote      *firebase.Config
	emulatorURL string
	httpOpts    []firebase.Option
}

// WithAccountStore sets the credential service.
func WithAccountStore(a engine.AccountStore) Option { return func(s *settings) { s.accounts = a } }

// WithSharedStore sets the shared tree.
func WithSharedStore(st engine.SharedStore) Option { return func(s *settings) { s.store = st } }

// WithPresenter sets the UI collaborator.
func WithPresenter(p engine.Presenter) Option { return func(s *settings) { s.ui = p } }

// WithQueueSize bounds the rejoin queue.
func WithQueueSize(n int) Option { return func(s *settings) { s.opts.QueueSize = n } }

// WithAtomicScores enables conditional highscore writes.
func WithAtomicScores(on bool) Option { return func(s *settings) { s.opts.AtomicScores = on } }

// WithLogger sets the logger used by the engines.
func WithLogger(l *slog.Logger) Option { return func(s *settings) { s.opts.Logger = l } }

// WithRemote talks to a hosted database and identity service, or to an
// emulator serving the same REST surface.
func WithRemote(cfg firebase.Config, httpOpts ...firebase.Option) Option {
	return func(s *settings) {
		s.remote = &cfg
		s.httpOpts = httpOpts
	}
}

// WithEmulator enables Watch against a catchkit emulator.
func WithEmulator(url string) Option { return func(s *settings) { s.emulatorURL = url } }

// FromConfig applies the client and remote sections of cfg.
func FromConfig(cfg *config.Config) Option {
	return func(s *settings) {
		s.opts.QueueSize = cfg.Client.QueueSize
		s.opts.AtomicScores = cfg.Client.AtomicScores
		if cfg.Remote.Enabled() {
			rc := cfg.Remote.Firebase()
			s.remote = &rc
		}
		if cfg.Remote.EmulatorURL != "" {
			s.emulatorURL = cfg.Remote.EmulatorURL
		}
	}
}

// Client is the engine service plus the remote handles it was built with.
type Client struct {
	*engine.Service

	database    *firebase.Database
	emulatorURL string
}

// New builds a client. Explicit stores win over a remote; with neither,
// both stores are in-process memory adapters.
func New(opts ...Option) (*Client, error) {
	s := &settings{}
	for _, o := range opts {
		o(s)
	}
	c := &Client{emulatorURL: s.emulatorURL}

	if s.remote != nil && (s.accounts == nil || s.store == nil) {
		session := &firebase.Session{}
		if s.accounts == nil {
			auth, err := firebase.NewAuth(*s.remote, session, s.httpOpts...)
			if err != nil {
				return nil, err
			}
			s.accounts = auth
		}
		if s.store == nil {
			db, err := firebase.NewDatabase(s.remote.DatabaseURL, session, *s.remote, s.httpOpts...)
			if err != nil {
				return nil, err
			}
			s.store = db
			c.database = db
		}
	}
	if s.accounts == nil {
		s.accounts = mem.NewAccounts()
	}
	if s.store == nil {
		s.store = mem.New()
	}
	c.Service = engine.NewService(s.accounts, s.store, s.ui, s.opts)
	return c, nil
}

// Remote reports whether the shared store is the REST database.
func (c *Client) Remote() bool { return c.database != nil }

// Watch streams changes under path from the emulator. Events arrive on a
// separate goroutine; callers hand them to the UI themselves.
func (c *Client) Watch(ctx context.Context, path core.Path) (<-chan core.Change, error) {
	if c.database == nil || c.emulatorURL == "" {
		return nil, ErrNoEmulator
	}
	return c.database.Watch(ctx, c.emulatorURL, path)
}
