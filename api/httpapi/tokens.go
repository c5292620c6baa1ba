package httpapi

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"catchkit/core"
)

const tokenIssuerName = "catchkit-emulator"

var errInvalidToken = errors.New("invalid id token")

type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// newTokenIssuer signs with secret, or with a random per-process key when
// none is configured.
func newTokenIssuer(secret []byte, ttl time.Duration) *tokenIssuer {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		_, _ = rand.Read(secret)
	}
	return &tokenIssuer{secret: secret, ttl: ttl}
}

func (t *tokenIssuer) issue(uid core.UserID, email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":     tokenIssuerName,
		"sub":     string(uid),
		"user_id": string(uid),
		"email":   email,
		"iat":     now.Unix(),
		"exp":     now.Add(t.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// verify returns the uid a token was issued to.
func (t *tokenIssuer) verify(raw string) (core.UserID, error) {
	tok, err := jwt.Parse(raw, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(tokenIssuerName), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: no subject", errInvalidToken)
	}
	return core.UserID(sub), nil
}

func (t *tokenIssuer) expiresIn() string {
	return fmt.Sprintf("%d", int(t.ttl.Seconds()))
}
