package engine

import (
	"sync"

	"catchkit/core"
)

// Session holds the signed-in user. Only Auth completion handlers write it,
// and they run on the goroutine draining the rejoin queue.
type Session struct {
	mu   sync.RWMutex
	user core.UserID
}

func NewSession() *Session { return &Session{} }

// CurrentUser returns the signed-in user id, if any.
func (s *Session) CurrentUser() (core.UserID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.user != ""
}

// SignedIn reports whether a user is signed in.
func (s *Session) SignedIn() bool {
	_, ok := s.CurrentUser()
	return ok
}

func (s *Session) set(id core.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = id
}

func (s *Session) clear() { s.set("") }
