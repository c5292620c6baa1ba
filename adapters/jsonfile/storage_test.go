package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"catchkit/core"
)

func TestStorePersistAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "tree.json")
	ctx := context.Background()

	store, err := New(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	profile := core.UserProfile{UserID: "alice", Username: "alice", Email: "a@x.com"}
	if err := store.Write(ctx, core.UserPath("alice"), profile.Value()); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	if _, written, err := store.WriteIfGreater(ctx, core.HighscorePath("alice"), 12); err != nil || !written {
		t.Fatalf("write highscore: written=%v err=%v", written, err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file at %s", path)
	}

	reloaded, err := New(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	v, ok, err := reloaded.Read(ctx, core.HighscorePath("alice"))
	if err != nil || !ok {
		t.Fatalf("read highscore: ok=%v err=%v", ok, err)
	}
	if v != int64(12) {
		t.Fatalf("highscore = %v (%T)", v, v)
	}
	children, err := reloaded.ReadOrderedCollection(ctx, core.UsersPath(), core.FieldHighscore)
	if err != nil || len(children) != 1 {
		t.Fatalf("children = %v err=%v", children, err)
	}
	if name, _ := children[0].Field(core.FieldUsername); name != "alice" {
		t.Fatalf("username = %v", name)
	}
}

func TestNewRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path); err == nil {
		t.Fatal("expected error for corrupt file")
	}
}
