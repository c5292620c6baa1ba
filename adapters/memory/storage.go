package memory

import (
	"context"
	"sync"

	"catchkit/core"
)

// Store is a concurrent in-memory shared store holding one JSON-like tree.
type Store struct {
	mu   sync.RWMutex
	root map[string]any
}

func New() *Store { return &Store{root: map[string]any{}} }

func (s *Store) Read(_ context.Context, path core.Path) (any, bool, error) {
	if err := path.Validate(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := lookup(s.root, path)
	if v == nil {
		return nil, false, nil
	}
	return core.CloneValue(v), true, nil
}

func (s *Store) Write(_ context.Context, path core.Path, value any) error {
	if err := path.Validate(); err != nil {
		return err
	}
	v, err := core.NormalizeValue(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = put(s.root, path, v)
	return nil
}

func (s *Store) ReadOrderedCollection(_ context.Context, path core.Path, orderKey string) ([]core.Child, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	children := core.ChildrenOf(core.CloneValue(lookup(s.root, path)))
	s.mu.RUnlock()
	core.SortChildren(children, orderKey)
	return children, nil
}

// WriteIfGreater replaces the integer at path when value is strictly greater.
func (s *Store) WriteIfGreater(_ context.Context, path core.Path, value int64) (int64, bool, error) {
	if err := path.Validate(); err != nil {
		return 0, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur := lookup(s.root, path); cur != nil {
		if n := core.ScoreOrZero(cur); value <= n {
			return n, false, nil
		}
	}
	s.root = put(s.root, path, value)
	return value, true, nil
}

// Snapshot returns a deep copy of the whole tree.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.CloneValue(s.root).(map[string]any)
}

// Load replaces the whole tree.
func (s *Store) Load(tree map[string]any) error {
	v, err := core.NormalizeValue(tree)
	if err != nil {
		return err
	}
	root, _ := v.(map[string]any)
	if root == nil {
		root = map[string]any{}
	}
	s.mu.Lock()
	s.root = root
	s.mu.Unlock()
	return nil
}

func lookup(root map[string]any, path core.Path) any {
	var node any = root
	for _, seg := range path.Segments() {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = m[seg]
	}
	if m, ok := node.(map[string]any); ok && len(m) == 0 {
		return nil
	}
	return node
}

// put sets path to v in place, creating parents and replacing scalars in the
// way. A nil v deletes and prunes parents left empty.
func put(root map[string]any, path core.Path, v any) map[string]any {
	segs := path.Segments()
	if len(segs) == 0 {
		m, _ := v.(map[string]any)
		if m == nil {
			m = map[string]any{}
		}
		return m
	}
	setIn(root, segs, v)
	return root
}

func setIn(m map[string]any, segs []string, v any) {
	key := segs[0]
	if len(segs) == 1 {
		if v == nil {
			delete(m, key)
		} else {
			m[key] = v
		}
		return
	}
	child, ok := m[key].(map[string]any)
	if !ok {
		if v == nil {
			return
		}
		child = map[string]any{}
		m[key] = child
	}
	setIn(child, segs[1:], v)
	if len(child) == 0 {
		delete(m, key)
	}
}
