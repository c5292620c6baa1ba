package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"catchkit/adapters/memory"
	"catchkit/core"
)

// Store persists the whole shared tree to a single JSON file after every
// write. Suitable for demos and small deployments.
type Store struct {
	path string
	mu   sync.Mutex // serializes write+persist
	tree *memory.Store
}

func New(path string) (*Store, error) {
	s := &Store{path: path, tree: memory.New()}
	if err := s.load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	v, err := core.DecodeValue(b)
	if err != nil {
		return fmt.Errorf("decode %s: %w", s.path, err)
	}
	m, _ := v.(map[string]any)
	return s.tree.Load(m)
}

func (s *Store) persist() error {
	tmp := s.path + ".tmp"
	b, err := json.MarshalIndent(s.tree.Snapshot(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) Read(ctx context.Context, path core.Path) (any, bool, error) {
	return s.tree.Read(ctx, path)
}

func (s *Store) ReadOrderedCollection(ctx context.Context, path core.Path, orderKey string) ([]core.Child, error) {
	return s.tree.ReadOrderedCollection(ctx, path, orderKey)
}

func (s *Store) Write(ctx context.Context, path core.Path, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tree.Write(ctx, path, value); err != nil {
		return err
	}
	return s.persist()
}

func (s *Store) WriteIfGreater(ctx context.Context, path core.Path, value int64) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, written, err := s.tree.WriteIfGreater(ctx, path, value)
	if err != nil || !written {
		return cur, written, err
	}
	return cur, written, s.persist()
}
