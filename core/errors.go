package core

import (
	"errors"
	"fmt"
	"strings"
)

// Failure is the closed set of terminal outcomes the engines surface.
// Every implementation carries the text shown to the player.
type Failure interface {
	error
	UserMessage() string
	failure()
}

// ValidationError is a local precondition failure. No remote call was made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) UserMessage() string { return e.Message }
func (*ValidationError) failure()              {}

// AuthKind classifies account store failures.
type AuthKind int

const (
	Unclassified AuthKind = iota
	EmailAlreadyInUse
	InvalidEmail
	WeakPassword
	UserNotFound
	WrongPassword
)

var authKindNames = map[AuthKind]string{
	Unclassified:      "unclassified",
	EmailAlreadyInUse: "email_already_in_use",
	InvalidEmail:      "invalid_email",
	WeakPassword:      "weak_password",
	UserNotFound:      "user_not_found",
	WrongPassword:     "wrong_password",
}

func (k AuthKind) String() string {
	if s, ok := authKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("auth_kind(%d)", int(k))
}

// AuthError is a classified account store failure. Message holds the remote
// text verbatim; it is what the player sees for Unclassified errors.
type AuthError struct {
	Kind    AuthKind
	Message string
	Err     error
}

// NewAuthError builds a classified error.
func NewAuthError(kind AuthKind, message string) *AuthError {
	return &AuthError{Kind: kind, Message: message}
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "auth: " + e.Kind.String()
	}
	return fmt.Sprintf("auth: %s: %s", e.Kind, e.Message)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches another *AuthError of the same kind, so errors.Is(err,
// &AuthError{Kind: WrongPassword}) works without comparing messages.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

func (e *AuthError) UserMessage() string {
	switch e.Kind {
	case EmailAlreadyInUse:
		return "Email already registered."
	case InvalidEmail:
		return "Invalid email format."
	case WeakPassword:
		return "Weak password."
	case UserNotFound:
		return "User not found."
	case WrongPassword:
		return "Wrong password."
	}
	if e.Message == "" {
		return "Authentication failed."
	}
	return e.Message
}

func (*AuthError) failure() {}

// Remote error codes understood by ClassifyAuthCode.
const (
	CodeEmailExists     = "EMAIL_EXISTS"
	CodeInvalidEmail    = "INVALID_EMAIL"
	CodeWeakPassword    = "WEAK_PASSWORD"
	CodeEmailNotFound   = "EMAIL_NOT_FOUND"
	CodeInvalidPassword = "INVALID_PASSWORD"
)

// ClassifyAuthCode maps a remote error code to an AuthError. Codes may carry a
// trailing explanation ("WEAK_PASSWORD : Password should be ...").
// Unrecognised codes become Unclassified with message kept verbatim.
func ClassifyAuthCode(code, message string) *AuthError {
	head := strings.TrimSpace(code)
	if i := strings.IndexAny(head, " :"); i >= 0 {
		head = head[:i]
	}
	if message == "" {
		message = code
	}
	switch head {
	case CodeEmailExists:
		return NewAuthError(EmailAlreadyInUse, message)
	case CodeInvalidEmail:
		return NewAuthError(InvalidEmail, message)
	case CodeWeakPassword:
		return NewAuthError(WeakPassword, message)
	case CodeEmailNotFound:
		return NewAuthError(UserNotFound, message)
	case CodeInvalidPassword:
		return NewAuthError(WrongPassword, message)
	}
	return NewAuthError(Unclassified, message)
}

// Code is the inverse of ClassifyAuthCode, used by emulators.
func (k AuthKind) Code() string {
	switch k {
	case EmailAlreadyInUse:
		return CodeEmailExists
	case InvalidEmail:
		return CodeInvalidEmail
	case WeakPassword:
		return CodeWeakPassword
	case UserNotFound:
		return CodeEmailNotFound
	case WrongPassword:
		return CodeInvalidPassword
	}
	return "UNKNOWN"
}

// AsAuthError returns err classified. Errors already classified pass through;
// anything else becomes Unclassified carrying err's text.
func AsAuthError(err error) *AuthError {
	if err == nil {
		return nil
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae
	}
	return &AuthError{Kind: Unclassified, Message: err.Error(), Err: err}
}

// ProfilePersistenceError means the account was created but its profile
// could not be written. The account stays partially initialized.
type ProfilePersistenceError struct {
	UserID UserID
	Err    error
}

func (e *ProfilePersistenceError) Error() string {
	return fmt.Sprintf("profile write for %s failed: %v", e.UserID, e.Err)
}

func (e *ProfilePersistenceError) Unwrap() error       { return e.Err }
func (e *ProfilePersistenceError) UserMessage() string { return "Failed to save user data." }
func (*ProfilePersistenceError) failure()              {}

// ProfileMissingError means credentials were valid but users/{id}/username is absent.
type ProfileMissingError struct {
	UserID UserID
	Err    error
}

func (e *ProfileMissingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("profile for %s unavailable: %v", e.UserID, e.Err)
	}
	return fmt.Sprintf("profile for %s missing", e.UserID)
}

func (e *ProfileMissingError) Unwrap() error { return e.Err }
func (e *ProfileMissingError) UserMessage() string {
	return "Login succeeded, but no username found."
}
func (*ProfileMissingError) failure() {}

// QueryError is a failed leaderboard fetch.
type QueryError struct{ Err error }

func (e *QueryError) Error() string       { return fmt.Sprintf("leaderboard query: %v", e.Err) }
func (e *QueryError) Unwrap() error       { return e.Err }
func (e *QueryError) UserMessage() string { return "Failed to load leaderboard." }
func (*QueryError) failure()              {}

// ScoreSyncError is a failed highscore read or write.
type ScoreSyncError struct {
	UserID UserID
	Err    error
}

func (e *ScoreSyncError) Error() string {
	return fmt.Sprintf("highscore sync for %s: %v", e.UserID, e.Err)
}
func (e *ScoreSyncError) Unwrap() error       { return e.Err }
func (e *ScoreSyncError) UserMessage() string { return "Failed to save high score." }
func (*ScoreSyncError) failure()              {}

// UserMessage returns the player-facing text for any error.
func UserMessage(err error) string {
	var f Failure
	if errors.As(err, &f) {
		return f.UserMessage()
	}
	return err.Error()
}
