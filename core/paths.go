package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPath is returned for paths the shared store cannot address.
var ErrInvalidPath = errors.New("invalid path")

// Path addresses a node in the shared store tree. Segments are separated by '/'.
// The zero value is the root.
type Path string

const usersRoot = "users"

// UsersPath is the collection holding every user record.
func UsersPath() Path { return Path(usersRoot) }

// UserPath is the record of a single user.
func UserPath(id UserID) Path { return Path(usersRoot + "/" + string(id)) }

// UsernamePath is users/{id}/username.
func UsernamePath(id UserID) Path { return UserPath(id).Child(FieldUsername) }

// EmailPath is users/{id}/email.
func EmailPath(id UserID) Path { return UserPath(id).Child(FieldEmail) }

// HighscorePath is users/{id}/highscore.
func HighscorePath(id UserID) Path { return UserPath(id).Child(FieldHighscore) }

// ParsePath cleans surrounding slashes and validates every segment.
func ParsePath(s string) (Path, error) {
	p := Path(strings.Trim(s, "/"))
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

// Child appends a segment.
func (p Path) Child(seg string) Path {
	if p == "" {
		return Path(seg)
	}
	return Path(string(p) + "/" + seg)
}

// Segments splits the path. The root has no segments.
func (p Path) Segments() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), "/")
}

// Parent returns the enclosing path; the root is its own parent.
func (p Path) Parent() Path {
	i := strings.LastIndexByte(string(p), '/')
	if i < 0 {
		return ""
	}
	return p[:i]
}

// Base returns the last segment, or "" for the root.
func (p Path) Base() string {
	i := strings.LastIndexByte(string(p), '/')
	return string(p[i+1:])
}

// IsRoot reports whether p addresses the whole tree.
func (p Path) IsRoot() bool { return p == "" }

func (p Path) String() string { return "/" + string(p) }

// Validate enforces the remote database key rules.
func (p Path) Validate() error {
	for _, seg := range p.Segments() {
		if err := ValidateKey(seg); err != nil {
			return fmt.Errorf("%w %q: %v", ErrInvalidPath, p, err)
		}
	}
	return nil
}

// ValidateKey checks a single path segment.
func ValidateKey(seg string) error {
	if seg == "" {
		return errors.New("empty segment")
	}
	if strings.ContainsAny(seg, ".#$[]/") {
		return fmt.Errorf("segment %q contains a reserved character", seg)
	}
	return nil
}

// UserIDFromPath extracts the user id from users/{id}[/...].
func UserIDFromPath(p Path) (UserID, bool) {
	segs := p.Segments()
	if len(segs) < 2 || segs[0] != usersRoot {
		return "", false
	}
	return UserID(segs[1]), true
}
