package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"catchkit/core"
)

// Accounts is an in-memory account store with bcrypt-hashed passwords. It
// answers with the same classified errors as the hosted identity provider.
type Accounts struct {
	mu      sync.Mutex
	byEmail map[string]account
	resets  []string
	cost    int
}

type account struct {
	id   core.UserID
	hash []byte
}

// AccountsOption configures Accounts.
type AccountsOption func(*Accounts)

// WithBcryptCost sets the hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) AccountsOption {
	return func(a *Accounts) { a.cost = cost }
}

func NewAccounts(opts ...AccountsOption) *Accounts {
	a := &Accounts{byEmail: map[string]account{}, cost: bcrypt.DefaultCost}
	for _, o := range opts {
		o(a)
	}
	return a
}

func emailKey(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func (a *Accounts) CreateAccount(_ context.Context, email, password string) (core.UserID, error) {
	if aerr := (core.Credentials{Email: strings.TrimSpace(email), Password: password}).Validate(); aerr != nil {
		return "", aerr
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return "", &core.AuthError{Kind: core.Unclassified, Message: "Password could not be stored.", Err: err}
	}
	key := emailKey(email)
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.byEmail[key]; exists {
		return "", core.NewAuthError(core.EmailAlreadyInUse, core.CodeEmailExists)
	}
	id := core.UserID(uuid.NewString())
	a.byEmail[key] = account{id: id, hash: hash}
	return id, nil
}

func (a *Accounts) Authenticate(_ context.Context, email, password string) (core.UserID, error) {
	a.mu.Lock()
	acc, ok := a.byEmail[emailKey(email)]
	a.mu.Unlock()
	if !ok {
		return "", core.NewAuthError(core.UserNotFound, core.CodeEmailNotFound)
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return "", core.NewAuthError(core.WrongPassword, core.CodeInvalidPassword)
	}
	return acc.id, nil
}

// SendPasswordReset records the request; nothing is mailed.
func (a *Accounts) SendPasswordReset(_ context.Context, email string) error {
	key := emailKey(email)
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.byEmail[key]; !ok {
		return core.NewAuthError(core.UserNotFound, core.CodeEmailNotFound)
	}
	a.resets = append(a.resets, key)
	return nil
}

func (a *Accounts) SignOutLocal() {}

// ResetRequests lists the emails a reset was requested for, oldest first.
func (a *Accounts) ResetRequests() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.resets...)
}
