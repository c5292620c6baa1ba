package core

import (
	"strings"
	"time"
)

// ChangeKind tells put from delete.
type ChangeKind string

const (
	ChangePut    ChangeKind = "put"
	ChangeDelete ChangeKind = "delete"
)

// Change is a write applied to the shared store, as streamed to listeners.
type Change struct {
	Kind ChangeKind `json:"event"`
	Path Path       `json:"path"`
	Data any        `json:"data"`
	At   time.Time  `json:"at"`
}

// NewChange builds the change event for a write of value at path.
func NewChange(path Path, value any) Change {
	kind := ChangePut
	if value == nil {
		kind = ChangeDelete
	}
	return Change{Kind: kind, Path: path, Data: value, At: time.Now().UTC()}
}

// Under reports whether the change affects prefix: a write at prefix, below
// it, or at one of its ancestors.
func (c Change) Under(prefix Path) bool {
	return c.Path == prefix || within(c.Path, prefix) || within(prefix, c.Path)
}

// within reports whether p lies strictly below ancestor.
func within(p, ancestor Path) bool {
	if ancestor.IsRoot() {
		return !p.IsRoot()
	}
	return strings.HasPrefix(string(p), string(ancestor)+"/")
}
