package engine

import (
	"context"

	"catchkit/core"
	"catchkit/leaderboard"
)

// AccountStore is the remote credential service. Implementations classify
// their failures as *core.AuthError at the boundary.
type AccountStore interface {
	CreateAccount(ctx context.Context, email, password string) (core.UserID, error)
	Authenticate(ctx context.Context, email, password string) (core.UserID, error)
	SendPasswordReset(ctx context.Context, email string) error
	// SignOutLocal drops any credential cached by the client.
	SignOutLocal()
}

// SharedStore is the remote path-addressed tree shared by every client.
type SharedStore interface {
	// Read returns the value at path; ok is false when nothing is stored there.
	Read(ctx context.Context, path core.Path) (value any, ok bool, err error)
	// Write replaces the value at path. A nil value deletes it.
	Write(ctx context.Context, path core.Path, value any) error
	// ReadOrderedCollection returns the children of path ordered by the
	// child field orderKey, in the store's native ordering.
	ReadOrderedCollection(ctx context.Context, path core.Path, orderKey string) ([]core.Child, error)
}

// ConditionalWriter is implemented by stores that can replace an integer
// only when the new value is strictly greater, atomically. A missing or
// non-numeric current value counts as absent-or-zero exactly like the
// read-then-write path.
type ConditionalWriter interface {
	WriteIfGreater(ctx context.Context, path core.Path, value int64) (current int64, written bool, err error)
}

// Presenter is the UI collaborator. Engines only call it from the goroutine
// that drains the rejoin queue.
type Presenter interface {
	DisplayMessage(text string)
	DisplayLeaderboard(entries []leaderboard.Entry)
	NavigateToScene(name string)
}

// Scene names used for navigation.
const (
	SceneHome  = "HomePage"
	SceneLogin = "LoginSignUpPage"
)

type discardPresenter struct{}

func (discardPresenter) DisplayMessage(string)                  {}
func (discardPresenter) DisplayLeaderboard([]leaderboard.Entry) {}
func (discardPresenter) NavigateToScene(string)                 {}
