package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	mem "catchkit/adapters/memory"
	"catchkit/core"
	"catchkit/leaderboard"
)

type recorder struct {
	mu       sync.Mutex
	messages []string
	boards   [][]leaderboard.Entry
	scenes   []string
}

func (r *recorder) DisplayMessage(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, text)
}

func (r *recorder) DisplayLeaderboard(entries []leaderboard.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boards = append(r.boards, entries)
}

func (r *recorder) NavigateToScene(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenes = append(r.scenes, name)
}

func (r *recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func (r *recorder) Scenes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.scenes...)
}

// countingAccounts wraps the memory account store, counts calls and can be
// told to fail.
type countingAccounts struct {
	*mem.Accounts
	mu        sync.Mutex
	calls     int
	failWith  error
	signedOut int
}

func (c *countingAccounts) hit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.failWith
}

func (c *countingAccounts) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *countingAccounts) CreateAccount(ctx context.Context, email, password string) (core.UserID, error) {
	if err := c.hit(); err != nil {
		return "", err
	}
	return c.Accounts.CreateAccount(ctx, email, password)
}

func (c *countingAccounts) Authenticate(ctx context.Context, email, password string) (core.UserID, error) {
	if err := c.hit(); err != nil {
		return "", err
	}
	return c.Accounts.Authenticate(ctx, email, password)
}

func (c *countingAccounts) SendPasswordReset(ctx context.Context, email string) error {
	if err := c.hit(); err != nil {
		return err
	}
	return c.Accounts.SendPasswordReset(ctx, email)
}

func (c *countingAccounts) SignOutLocal() {
	c.mu.Lock()
	c.signedOut++
	c.mu.Unlock()
}

// flakyStore wraps the memory store with injectable failures.
type flakyStore struct {
	*mem.Store
	mu       sync.Mutex
	readErr  error
	writeErr error
	listErr  error
	writes   int
}

func (f *flakyStore) set(fn func(*flakyStore)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *flakyStore) Read(ctx context.Context, path core.Path) (any, bool, error) {
	f.mu.Lock()
	err := f.readErr
	f.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	return f.Store.Read(ctx, path)
}

func (f *flakyStore) Write(ctx context.Context, path core.Path, value any) error {
	f.mu.Lock()
	err := f.writeErr
	f.writes++
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.Write(ctx, path, value)
}

func (f *flakyStore) ReadOrderedCollection(ctx context.Context, path core.Path, orderKey string) ([]core.Child, error) {
	f.mu.Lock()
	err := f.listErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Store.ReadOrderedCollection(ctx, path, orderKey)
}

func (f *flakyStore) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

type fixture struct {
	svc      *Service
	ui       *recorder
	accounts *countingAccounts
	store    *flakyStore
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	fx := &fixture{
		ui:       &recorder{},
		accounts: &countingAccounts{Accounts: mem.NewAccounts(mem.WithBcryptCost(bcrypt.MinCost))},
		store:    &flakyStore{Store: mem.New()},
	}
	fx.svc = NewService(fx.accounts, fx.store, fx.ui, opts)
	t.Cleanup(fx.svc.Close)
	return fx
}

// await drains the rejoin queue on the test goroutine until f resolves.
func await[T any](t *testing.T, q *RejoinQueue, f *Future[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for !f.Ready() {
		require.NoError(t, q.Next(ctx))
	}
	return f.Result()
}
