package firebase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"catchkit/core"
)

// Auth is a REST client for the identity toolkit account endpoints. Every
// failure it returns is a *core.AuthError.
type Auth struct {
	base    string
	apiKey  string
	t       *transport
	session *Session
}

// NewAuth builds an account client. Successful sign-up and sign-in store
// the id token in session.
func NewAuth(cfg Config, session *Session, opts ...Option) (*Auth, error) {
	base := strings.TrimSuffix(cfg.IdentityURL, "/")
	if base == "" {
		base = DefaultIdentityURL
	}
	if session == nil {
		return nil, errors.New("auth requires a session")
	}
	return &Auth{base: base, apiKey: cfg.APIKey, t: newTransport(cfg.Timeout, opts), session: session}, nil
}

type credentialsRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type tokenResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	ExpiresIn    string `json:"expiresIn"`
}

type oobRequest struct {
	RequestType string `json:"requestType"`
	Email       string `json:"email"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *Auth) call(ctx context.Context, endpoint string, body, out any) error {
	u := a.base + "/accounts:" + endpoint
	if a.apiKey != "" {
		u += "?key=" + url.QueryEscape(a.apiKey)
	}
	resp, err := a.t.do(ctx, http.MethodPost, u, body, nil)
	if err != nil {
		return &core.AuthError{Kind: core.Unclassified, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var er errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Error.Message == "" {
			return core.NewAuthError(core.Unclassified, fmt.Sprintf("identity service returned status %d", resp.StatusCode))
		}
		return core.ClassifyAuthCode(er.Error.Message, er.Error.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &core.AuthError{Kind: core.Unclassified, Message: "malformed identity response", Err: err}
	}
	return nil
}

func (a *Auth) tokenCall(ctx context.Context, endpoint, email, password string) (core.UserID, error) {
	var tok tokenResponse
	req := credentialsRequest{Email: email, Password: password, ReturnSecureToken: true}
	if err := a.call(ctx, endpoint, req, &tok); err != nil {
		return "", err
	}
	if tok.LocalID == "" {
		return "", core.NewAuthError(core.Unclassified, "identity response has no user id")
	}
	a.session.setToken(tok.IDToken)
	return core.UserID(tok.LocalID), nil
}

func (a *Auth) CreateAccount(ctx context.Context, email, password string) (core.UserID, error) {
	return a.tokenCall(ctx, "signUp", email, password)
}

func (a *Auth) Authenticate(ctx context.Context, email, password string) (core.UserID, error) {
	return a.tokenCall(ctx, "signInWithPassword", email, password)
}

func (a *Auth) SendPasswordReset(ctx context.Context, email string) error {
	return a.call(ctx, "sendOobCode", oobRequest{RequestType: "PASSWORD_RESET", Email: email}, nil)
}

// SignOutLocal forgets the id token.
func (a *Auth) SignOutLocal() { a.session.setToken("") }
