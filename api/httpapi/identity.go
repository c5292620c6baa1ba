package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"catchkit/core"
	"catchkit/engine"
)

// identityHandler serves the identity toolkit account endpoints.
type identityHandler struct {
	accounts engine.AccountStore
	tokens   *tokenIssuer
	log      *slog.Logger
}

type identityRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	RequestType string `json:"requestType"`
}

type identityErrorBody struct {
	Error identityError `json:"error"`
}

type identityError struct {
	Code    int                 `json:"code"`
	Message string              `json:"message"`
	Errors  []identityErrorItem `json:"errors"`
}

type identityErrorItem struct {
	Message string `json:"message"`
	Domain  string `json:"domain"`
	Reason  string `json:"reason"`
}

func (h *identityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		identityFail(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED")
		return
	}
	op, ok := strings.CutPrefix(r.URL.Path, "/accounts:")
	if !ok {
		identityFail(w, http.StatusNotFound, "NOT_FOUND")
		return
	}
	var req identityRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		identityFail(w, http.StatusBadRequest, "INVALID_JSON_PAYLOAD")
		return
	}
	ctx := r.Context()
	switch op {
	case "signUp", "signInWithPassword":
		var (
			uid core.UserID
			err error
		)
		if op == "signUp" {
			uid, err = h.accounts.CreateAccount(ctx, req.Email, req.Password)
		} else {
			uid, err = h.accounts.Authenticate(ctx, req.Email, req.Password)
		}
		if err != nil {
			h.authFail(w, op, err)
			return
		}
		tok, err := h.tokens.issue(uid, req.Email)
		if err != nil {
			h.log.Error("token signing failed", "error", err)
			identityFail(w, http.StatusInternalServerError, "INTERNAL_ERROR")
			return
		}
		h.log.Info("account "+op, "user_id", uid)
		writeJSON(w, http.StatusOK, map[string]any{
			"kind":         "identitytoolkit#" + op + "Response",
			"idToken":      tok,
			"refreshToken": "",
			"localId":      uid,
			"email":        req.Email,
			"expiresIn":    h.tokens.expiresIn(),
		})
	case "sendOobCode":
		if req.RequestType != "PASSWORD_RESET" {
			identityFail(w, http.StatusBadRequest, "INVALID_REQ_TYPE")
			return
		}
		if err := h.accounts.SendPasswordReset(ctx, req.Email); err != nil {
			h.authFail(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"kind": "identitytoolkit#GetOobConfirmationCodeResponse", "email": req.Email})
	default:
		identityFail(w, http.StatusNotFound, "NOT_FOUND")
	}
}

// authFail renders an account store error with the remote error code.
func (h *identityHandler) authFail(w http.ResponseWriter, op string, err error) {
	var ae *core.AuthError
	if !errors.As(err, &ae) {
		h.log.Error("account store failed", "op", op, "error", err)
		identityFail(w, http.StatusInternalServerError, "INTERNAL_ERROR")
		return
	}
	msg := ae.Kind.Code()
	if ae.Kind == core.Unclassified {
		msg = ae.Message
	} else if strings.HasPrefix(ae.Message, msg) {
		msg = ae.Message
	}
	h.log.Debug("account request rejected", "op", op, "kind", ae.Kind)
	identityFail(w, http.StatusBadRequest, msg)
}

func identityFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, identityErrorBody{Error: identityError{
		Code:    status,
		Message: message,
		Errors:  []identityErrorItem{{Message: message, Domain: "global", Reason: "invalid"}},
	}})
}
