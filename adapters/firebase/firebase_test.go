package firebase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	mem "catchkit/adapters/memory"
	"catchkit/api/httpapi"
	"catchkit/core"
	"catchkit/realtime"
)

type emulator struct {
	srv      *httptest.Server
	accounts *mem.Accounts
	store    *mem.Store
	cfg      Config
}

func newEmulator(t *testing.T, opts httpapi.Options) *emulator {
	t.Helper()
	e := &emulator{
		accounts: mem.NewAccounts(mem.WithBcryptCost(bcrypt.MinCost)),
		store:    mem.New(),
	}
	if opts.JWTSecret == nil {
		opts.JWTSecret = []byte("firebase-test")
	}
	hub := realtime.NewHub()
	e.srv = httptest.NewServer(httpapi.NewMux(httpapi.Backend{Accounts: e.accounts, Store: e.store}, hub, opts))
	t.Cleanup(e.srv.Close)
	e.cfg = Config{
		DatabaseURL: e.srv.URL + "/db",
		IdentityURL: e.srv.URL + "/v1",
		APIKey:      "demo",
		Timeout:     5 * time.Second,
	}
	return e
}

func (e *emulator) clients(t *testing.T) (*Auth, *Database, *Session) {
	t.Helper()
	s := &Session{}
	a, err := NewAuth(e.cfg, s)
	require.NoError(t, err)
	d, err := NewDatabase(e.cfg.DatabaseURL, s, e.cfg)
	require.NoError(t, err)
	return a, d, s
}

func TestAuthSignUpStoresToken(t *testing.T) {
	e := newEmulator(t, httpapi.Options{})
	a, _, s := e.clients(t)
	ctx := context.Background()

	id, err := a.CreateAccount(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NotEmpty(t, s.IDToken())

	a.SignOutLocal()
	assert.Empty(t, s.IDToken())

	again, err := a.Authenticate(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.NotEmpty(t, s.IDToken())
}

func TestAuthClassifiesRemoteErrors(t *testing.T) {
	e := newEmulator(t, httpapi.Options{})
	a, _, _ := e.clients(t)
	ctx := context.Background()
	_, err := a.CreateAccount(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	cases := []struct {
		name string
		run  func() error
		kind core.AuthKind
	}{
		{"duplicate", func() error { _, err := a.CreateAccount(ctx, "a@x.com", "secret1"); return err }, core.EmailAlreadyInUse},
		{"weak", func() error { _, err := a.CreateAccount(ctx, "b@x.com", "123"); return err }, core.WeakPassword},
		{"unknown user", func() error { _, err := a.Authenticate(ctx, "z@x.com", "secret1"); return err }, core.UserNotFound},
		{"wrong password", func() error { _, err := a.Authenticate(ctx, "a@x.com", "nope-nope"); return err }, core.WrongPassword},
		{"reset unknown", func() error { return a.SendPasswordReset(ctx, "z@x.com") }, core.UserNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			var ae *core.AuthError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tc.kind, ae.Kind)
		})
	}
	require.NoError(t, a.SendPasswordReset(ctx, "a@x.com"))
	assert.Equal(t, []string{"a@x.com"}, e.accounts.ResetRequests())
}

func TestAuthUnclassifiedKeepsMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k1", r.URL.Query().Get("key"))
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"TOO_MANY_ATTEMPTS_TRY_LATER"}}`))
	}))
	defer srv.Close()

	a, err := NewAuth(Config{IdentityURL: srv.URL, APIKey: "k1"}, &Session{})
	require.NoError(t, err)
	_, err = a.Authenticate(context.Background(), "a@x.com", "secret1")
	var ae *core.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, core.Unclassified, ae.Kind)
	assert.Equal(t, "TOO_MANY_ATTEMPTS_TRY_LATER", ae.UserMessage())
}

func TestAuthTransportFailureIsUnclassified(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	a, err := NewAuth(Config{IdentityURL: url}, &Session{})
	require.NoError(t, err)
	_, err = a.CreateAccount(context.Background(), "a@x.com", "secret1")
	var ae *core.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, core.Unclassified, ae.Kind)
}

func TestNewAuthRequiresSession(t *testing.T) {
	_, err := NewAuth(Config{}, nil)
	require.Error(t, err)
}

func TestDatabaseReadWriteDelete(t *testing.T) {
	e := newEmulator(t, httpapi.Options{})
	_, d, _ := e.clients(t)
	ctx := context.Background()

	require.NoError(t, d.Write(ctx, core.UserPath("u1"), map[string]any{"username": "alice", "email": "a@x.com"}))
	v, ok, err := d.Read(ctx, core.UsernamePath("u1"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", v)

	require.NoError(t, d.Write(ctx, core.HighscorePath("u1"), 12))
	v, _, err = d.Read(ctx, core.HighscorePath("u1"))
	require.NoError(t, err)
	assert.Equal(t, int64(12), v)

	require.NoError(t, d.Write(ctx, core.UserPath("u1"), nil))
	_, ok, err = d.Read(ctx, core.UserPath("u1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDatabaseRejectsInvalidPath(t *testing.T) {
	d, err := NewDatabase("http://127.0.0.1:1/db", nil, Config{})
	require.NoError(t, err)
	_, _, err = d.Read(context.Background(), core.Path("users/a.b"))
	assert.ErrorIs(t, err, core.ErrInvalidPath)
}

func TestDatabaseOrderedCollection(t *testing.T) {
	e := newEmulator(t, httpapi.Options{})
	_, d, _ := e.clients(t)
	ctx := context.Background()

	require.NoError(t, d.Write(ctx, core.UserPath("alice"), map[string]any{"username": "alice", "highscore": 40}))
	require.NoError(t, d.Write(ctx, core.UserPath("bob"), map[string]any{"username": "bob", "highscore": 75}))
	require.NoError(t, d.Write(ctx, core.UserPath("carl"), map[string]any{"username": "carl"}))

	children, err := d.ReadOrderedCollection(ctx, core.UsersPath(), core.FieldHighscore)
	require.NoError(t, err)
	require.Len(t, children, 3)
	assert.Equal(t, []string{"carl", "alice", "bob"}, []string{children[0].Key, children[1].Key, children[2].Key})
}

func TestDatabaseWriteIfGreater(t *testing.T) {
	e := newEmulator(t, httpapi.Options{})
	_, d, _ := e.clients(t)
	ctx := context.Background()
	p := core.HighscorePath("u1")

	cur, written, err := d.WriteIfGreater(ctx, p, 10)
	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, int64(10), cur)

	cur, written, err = d.WriteIfGreater(ctx, p, 4)
	require.NoError(t, err)
	assert.False(t, written)
	assert.Equal(t, int64(10), cur)
}

func TestDatabaseWriteIfGreaterRetriesOnConflict(t *testing.T) {
	var puts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("ETag", "v1")
			_, _ = w.Write([]byte("3"))
		case http.MethodPut:
			if puts.Add(1) == 1 {
				assert.Equal(t, "v1", r.Header.Get("If-Match"))
				w.Header().Set("ETag", "v2")
				w.WriteHeader(http.StatusPreconditionFailed)
				_, _ = w.Write([]byte("6"))
				return
			}
			assert.Equal(t, "v2", r.Header.Get("If-Match"))
			var body json.Number
			_ = json.NewDecoder(r.Body).Decode(&body)
			_, _ = w.Write([]byte(body))
		}
	}))
	defer srv.Close()

	d, err := NewDatabase(srv.URL, nil, Config{})
	require.NoError(t, err)
	cur, written, err := d.WriteIfGreater(context.Background(), core.HighscorePath("u1"), 9)
	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, int64(9), cur)
	assert.Equal(t, int32(2), puts.Load())
}

func TestDatabaseWriteIfGreaterStopsWhenOvertaken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Header().Set("ETag", "v1")
			_, _ = w.Write([]byte("3"))
			return
		}
		w.Header().Set("ETag", "v2")
		w.WriteHeader(http.StatusPreconditionFailed)
		_, _ = w.Write([]byte("50"))
	}))
	defer srv.Close()

	d, err := NewDatabase(srv.URL, nil, Config{})
	require.NoError(t, err)
	cur, written, err := d.WriteIfGreater(context.Background(), core.HighscorePath("u1"), 9)
	require.NoError(t, err)
	assert.False(t, written)
	assert.Equal(t, int64(50), cur)
}

func TestDatabaseWriteIfGreaterContention(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", "always-stale")
		if r.Method == http.MethodPut {
			w.WriteHeader(http.StatusPreconditionFailed)
		}
		_, _ = w.Write([]byte("1"))
	}))
	defer srv.Close()

	d, err := NewDatabase(srv.URL, nil, Config{})
	require.NoError(t, err)
	_, _, err = d.WriteIfGreater(context.Background(), core.HighscorePath("u1"), 9)
	assert.ErrorIs(t, err, ErrContention)
}

func TestDatabaseStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Permission denied"}`))
	}))
	defer srv.Close()

	d, err := NewDatabase(srv.URL, nil, Config{})
	require.NoError(t, err)
	err = d.Write(context.Background(), core.HighscorePath("u1"), 3)
	require.ErrorIs(t, err, ErrStatus)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Equal(t, "Permission denied", se.Message)
}

func TestDatabaseSendsAuthToken(t *testing.T) {
	e := newEmulator(t, httpapi.Options{RequireAuth: true})
	a, d, _ := e.clients(t)
	ctx := context.Background()

	_, _, err := d.Read(ctx, core.UsersPath())
	require.ErrorIs(t, err, ErrStatus)

	id, err := a.CreateAccount(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, d.Write(ctx, core.UserPath(id), map[string]any{"username": "alice"}))
	assert.Error(t, d.Write(ctx, core.UserPath("someone-else"), map[string]any{"username": "mallory"}))
}

func TestDatabaseWatch(t *testing.T) {
	e := newEmulator(t, httpapi.Options{})
	_, d, _ := e.clients(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := d.Watch(ctx, e.srv.URL, core.UsersPath())
	require.NoError(t, err)

	deadline := time.After(5 * time.Second)
	for {
		require.NoError(t, d.Write(ctx, core.HighscorePath("u1"), 5))
		select {
		case c := <-changes:
			assert.Equal(t, core.ChangePut, c.Kind)
			assert.Equal(t, core.HighscorePath("u1"), c.Path)
			return
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatal("no change received")
		}
	}
}

func TestDatabaseWatchEndsWhenServerDrops(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteJSON(core.NewChange(core.HighscorePath("u1"), int64(3)))
		_ = conn.Close()
	}))
	defer srv.Close()

	d, err := NewDatabase(srv.URL+"/db", &Session{}, Config{})
	require.NoError(t, err)

	// Never cancelled: the feed must end on its own once the server hangs up.
	changes, err := d.Watch(context.Background(), srv.URL, core.UsersPath())
	require.NoError(t, err)

	var got []core.Change
	timeout := time.After(5 * time.Second)
	for {
		select {
		case c, ok := <-changes:
			if !ok {
				require.Len(t, got, 1)
				assert.Equal(t, core.HighscorePath("u1"), got[0].Path)
				return
			}
			got = append(got, c)
		case <-timeout:
			t.Fatal("change feed still open after server closed the connection")
		}
	}
}

func TestDeriveWSURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:9000/ws", deriveWSURL("http://localhost:9000"))
	assert.Equal(t, "wss://emu.example/base/ws", deriveWSURL("https://emu.example/base/"))
}
