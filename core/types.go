package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// UserID is the opaque identifier assigned by the account store.
type UserID string

// Field names of a user record in the shared store.
const (
	FieldUsername  = "username"
	FieldEmail     = "email"
	FieldHighscore = "highscore"
)

// UserProfile is the record stored at users/{userId}.
type UserProfile struct {
	UserID   UserID `json:"-"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Value returns the shared-store representation of the profile.
func (p UserProfile) Value() map[string]any {
	return map[string]any{
		FieldUsername: p.Username,
		FieldEmail:    p.Email,
	}
}

// HighScoreRecord is the per-user best score. Stored values never decrease.
type HighScoreRecord struct {
	UserID    UserID `json:"user_id"`
	Highscore int64  `json:"highscore"`
}

// Child is one element of an ordered collection read.
type Child struct {
	Key   string
	Value any
}

// Field returns the named field of a map-valued child.
func (c Child) Field(name string) (any, bool) {
	m, ok := c.Value.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := m[name]
	return v, ok && v != nil
}

// NormalizeUserID trims user identifiers. Unlike emails they are case sensitive.
func NormalizeUserID(id UserID) (UserID, error) {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return "", errors.New("empty user id")
	}
	return UserID(s), nil
}

// ParseScore interprets a stored highscore value. It accepts anything whose
// textual form is a base-10 integer, so "12", 12 and 12.0 all parse while
// 12.5, "abc" and booleans do not.
func ParseScore(v any) (int64, bool) {
	if v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ScoreOrZero is ParseScore with the leaderboard default of 0.
func ScoreOrZero(v any) int64 {
	n, _ := ParseScore(v)
	return n
}
