package engine

import (
	"context"

	"catchkit/core"
)

// Auth runs sign-up, sign-in, password reset and sign-out.
type Auth struct {
	accounts AccountStore
	store    SharedStore
	session  *Session
	rt       *Runtime
}

func NewAuth(accounts AccountStore, store SharedStore, session *Session, rt *Runtime) *Auth {
	if accounts == nil || store == nil || session == nil || rt == nil {
		panic("NewAuth requires non-nil accounts, store, session, and runtime")
	}
	return &Auth{accounts: accounts, store: store, session: session, rt: rt}
}

// SignUp creates the account, then writes {username, email} to users/{id}.
// The session is set only when both steps succeed. A failed profile write
// leaves the account in place and resolves with *core.ProfilePersistenceError.
func (a *Auth) SignUp(ctx context.Context, username, email, password string) *Future[core.UserID] {
	const op = "signup"
	in := core.NewSignUpInput(username, email, password)
	if err := in.Validate(); err != nil {
		return rejectNow[core.UserID](a.rt, op, err)
	}
	f := newFuture[core.UserID]()
	a.rt.spawn(ctx, op, dropper(f), func(ctx context.Context) func() {
		id, err := a.accounts.CreateAccount(ctx, in.Email, in.Password)
		if err != nil {
			ae := core.AsAuthError(err)
			return func() { fail(a.rt, f, op, ae, ae.UserMessage()) }
		}
		profile := core.UserProfile{UserID: id, Username: in.Username, Email: in.Email}
		if err := a.store.Write(ctx, core.UserPath(id), profile.Value()); err != nil {
			perr := &core.ProfilePersistenceError{UserID: id, Err: err}
			return func() { fail(a.rt, f, op, perr, perr.UserMessage()) }
		}
		return func() {
			a.session.set(id)
			a.rt.Log.Info("user registered", "user_id", id, "username", in.Username)
			a.rt.UI.DisplayMessage("Registration successful!")
			f.resolve(id, nil)
		}
	})
	return f
}

// SignIn authenticates, sets the session, then checks users/{id}/username.
// A missing username resolves with *core.ProfileMissingError while the
// session stays signed in. Authentication failures leave the session alone.
func (a *Auth) SignIn(ctx context.Context, email, password string) *Future[core.UserID] {
	const op = "signin"
	in := core.NewSignInInput(email, password)
	if err := in.Validate(); err != nil {
		return rejectNow[core.UserID](a.rt, op, err)
	}
	f := newFuture[core.UserID]()
	a.rt.spawn(ctx, op, dropper(f), func(ctx context.Context) func() {
		id, err := a.accounts.Authenticate(ctx, in.Email, in.Password)
		if err != nil {
			ae := core.AsAuthError(err)
			return func() { fail(a.rt, f, op, ae, ae.UserMessage()) }
		}
		return func() {
			a.session.set(id)
			a.loadUsername(ctx, id, f)
		}
	})
	return f
}

func (a *Auth) loadUsername(ctx context.Context, id core.UserID, f *Future[core.UserID]) {
	const op = "signin.profile"
	a.rt.spawn(ctx, op, dropper(f), func(ctx context.Context) func() {
		v, ok, err := a.store.Read(ctx, core.UsernamePath(id))
		return func() {
			if err != nil || !ok {
				perr := &core.ProfileMissingError{UserID: id, Err: err}
				fail(a.rt, f, op, perr, perr.UserMessage())
				return
			}
			a.rt.Log.Info("user signed in", "user_id", id, "username", v)
			a.rt.UI.NavigateToScene(SceneHome)
			f.resolve(id, nil)
		}
	})
}

// RequestPasswordReset asks the account store to send a reset email.
func (a *Auth) RequestPasswordReset(ctx context.Context, email string) *Future[struct{}] {
	const op = "reset"
	in := core.NewResetInput(email)
	if err := in.Validate(); err != nil {
		return rejectNow[struct{}](a.rt, op, err)
	}
	f := newFuture[struct{}]()
	a.rt.spawn(ctx, op, dropper(f), func(ctx context.Context) func() {
		err := a.accounts.SendPasswordReset(ctx, in.Email)
		if err != nil {
			ae := core.AsAuthError(err)
			return func() { fail(a.rt, f, op, ae, "Reset failed: "+ae.UserMessage()) }
		}
		return func() {
			a.rt.UI.DisplayMessage("Reset email sent.")
			f.resolve(struct{}{}, nil)
		}
	})
	return f
}

// SignOut clears the session unconditionally. It must be called on the UI
// goroutine.
func (a *Auth) SignOut() {
	a.accounts.SignOutLocal()
	if id, ok := a.session.CurrentUser(); ok {
		a.rt.Log.Info("user signed out", "user_id", id)
	}
	a.session.clear()
	a.rt.UI.NavigateToScene(SceneLogin)
	a.rt.UI.DisplayMessage("Signed out successfully.")
}
