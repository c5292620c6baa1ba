package core

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MinPasswordLength is the shortest password accepted at sign-up.
const MinPasswordLength = 6

var validate = validator.New(validator.WithRequiredStructEnabled())

// SignUpInput is the trimmed sign-up form.
type SignUpInput struct {
	Username string `validate:"required"`
	Email    string `validate:"required"`
	Password string `validate:"required,min=6"`
}

// SignInInput is the trimmed sign-in form.
type SignInInput struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// ResetInput is the password reset form.
type ResetInput struct {
	Email string `validate:"required"`
}

// Credentials is what an account store accepts at account creation.
type Credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

// NewSignUpInput trims username and email; the password is taken as typed.
func NewSignUpInput(username, email, password string) SignUpInput {
	return SignUpInput{
		Username: strings.TrimSpace(username),
		Email:    strings.TrimSpace(email),
		Password: password,
	}
}

// Validate reports the first failing rule in the order the form checks them:
// missing fields first, then password length.
func (in SignUpInput) Validate() error {
	fields := fieldErrors(validate.Struct(in))
	if len(fields) == 0 {
		return nil
	}
	for _, fe := range fields {
		if fe.Tag() == "required" {
			return &ValidationError{Field: fe.Field(), Message: "Please fill in all fields."}
		}
	}
	return &ValidationError{Field: "Password", Message: "Password must be at least 6 characters long."}
}

// NewSignInInput trims the email only.
func NewSignInInput(email, password string) SignInInput {
	return SignInInput{Email: strings.TrimSpace(email), Password: password}
}

func (in SignInInput) Validate() error {
	if fields := fieldErrors(validate.Struct(in)); len(fields) > 0 {
		return &ValidationError{Field: fields[0].Field(), Message: "Please enter email and password."}
	}
	return nil
}

// NewResetInput trims the email.
func NewResetInput(email string) ResetInput {
	return ResetInput{Email: strings.TrimSpace(email)}
}

func (in ResetInput) Validate() error {
	if fields := fieldErrors(validate.Struct(in)); len(fields) > 0 {
		return &ValidationError{Field: "Email", Message: "Please enter your email."}
	}
	return nil
}

// Validate classifies credential problems the way a hosted identity provider does.
func (c Credentials) Validate() *AuthError {
	for _, fe := range fieldErrors(validate.Struct(c)) {
		switch fe.Field() {
		case "Email":
			return NewAuthError(InvalidEmail, CodeInvalidEmail)
		case "Password":
			return NewAuthError(WeakPassword, CodeWeakPassword+" : Password should be at least 6 characters")
		}
	}
	return nil
}

// ValidateScore rejects scores below zero.
func ValidateScore(score int64) error {
	if score < 0 {
		return &ValidationError{Field: "Score", Message: "Score cannot be negative."}
	}
	return nil
}

func fieldErrors(err error) validator.ValidationErrors {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}
