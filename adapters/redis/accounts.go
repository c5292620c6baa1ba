package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"catchkit/core"
)

// Accounts is an account store on Redis for the local emulator:
//
//	{prefix}account:{email} -> JSON {id, hash}
//	{prefix}resets          -> list of emails a reset was requested for
type Accounts struct {
	client *redis.Client
	prefix string
	cost   int
}

type accountRecord struct {
	ID   core.UserID `json:"id"`
	Hash []byte      `json:"hash"`
}

func NewAccounts(client *redis.Client, prefix string, cost int) *Accounts {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Accounts{client: client, prefix: prefix, cost: cost}
}

func (a *Accounts) accountKey(email string) string {
	return a.prefix + "account:" + strings.ToLower(strings.TrimSpace(email))
}

func (a *Accounts) resetsKey() string { return a.prefix + "resets" }

func (a *Accounts) CreateAccount(ctx context.Context, email, password string) (core.UserID, error) {
	if aerr := (core.Credentials{Email: strings.TrimSpace(email), Password: password}).Validate(); aerr != nil {
		return "", aerr
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return "", &core.AuthError{Kind: core.Unclassified, Message: "Password could not be stored.", Err: err}
	}
	rec := accountRecord{ID: core.UserID(uuid.NewString()), Hash: hash}
	b, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode account: %w", err)
	}
	created, err := a.client.SetNX(ctx, a.accountKey(email), b, 0).Result()
	if err != nil {
		return "", &core.AuthError{Kind: core.Unclassified, Message: "Account service unavailable.", Err: err}
	}
	if !created {
		return "", core.NewAuthError(core.EmailAlreadyInUse, core.CodeEmailExists)
	}
	return rec.ID, nil
}

func (a *Accounts) lookup(ctx context.Context, email string) (accountRecord, error) {
	var rec accountRecord
	b, err := a.client.Get(ctx, a.accountKey(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return rec, core.NewAuthError(core.UserNotFound, core.CodeEmailNotFound)
	}
	if err != nil {
		return rec, &core.AuthError{Kind: core.Unclassified, Message: "Account service unavailable.", Err: err}
	}
	if err := json.Unmarshal(b, &rec); err != nil {
		return rec, &core.AuthError{Kind: core.Unclassified, Message: "Account record is corrupt.", Err: err}
	}
	return rec, nil
}

func (a *Accounts) Authenticate(ctx context.Context, email, password string) (core.UserID, error) {
	rec, err := a.lookup(ctx, email)
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword(rec.Hash, []byte(password)); err != nil {
		return "", core.NewAuthError(core.WrongPassword, core.CodeInvalidPassword)
	}
	return rec.ID, nil
}

func (a *Accounts) SendPasswordReset(ctx context.Context, email string) error {
	if _, err := a.lookup(ctx, email); err != nil {
		return err
	}
	if err := a.client.RPush(ctx, a.resetsKey(), strings.ToLower(strings.TrimSpace(email))).Err(); err != nil {
		return &core.AuthError{Kind: core.Unclassified, Message: "Account service unavailable.", Err: err}
	}
	return nil
}

func (a *Accounts) SignOutLocal() {}

// ResetRequests lists the emails a reset was requested for, oldest first.
func (a *Accounts) ResetRequests(ctx context.Context) ([]string, error) {
	return a.client.LRange(ctx, a.resetsKey(), 0, -1).Result()
}
