package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNormalizeUserID(t *testing.T) {
	id, err := NormalizeUserID(" AbC123 ")
	if err != nil || id != "AbC123" {
		t.Fatalf("got %v %v", id, err)
	}
	if _, err := NormalizeUserID("   "); err == nil {
		t.Fatalf("expected empty error")
	}
}

func TestParseScore(t *testing.T) {
	cases := []struct {
		in   any
		want int64
		ok   bool
	}{
		{int64(5), 5, true},
		{7, 7, true},
		{float64(12), 12, true},
		{json.Number("42"), 42, true},
		{"17", 17, true},
		{" 3 ", 3, true},
		{12.5, 0, false},
		{"abc", 0, false},
		{true, 0, false},
		{nil, 0, false},
		{map[string]any{"x": 1}, 0, false},
	}
	for _, c := range cases {
		got, ok := ParseScore(c.in)
		if got != c.want || ok != c.ok {
			t.Fatalf("ParseScore(%#v) = %d,%v want %d,%v", c.in, got, ok, c.want, c.ok)
		}
	}
	if ScoreOrZero("nope") != 0 {
		t.Fatal("non-numeric should be 0")
	}
}

func TestPaths(t *testing.T) {
	id := UserID("U1")
	if UserPath(id) != "users/U1" {
		t.Fatalf("user path %q", UserPath(id))
	}
	if HighscorePath(id) != "users/U1/highscore" || UsernamePath(id) != "users/U1/username" || EmailPath(id) != "users/U1/email" {
		t.Fatal("unexpected field paths")
	}
	p := HighscorePath(id)
	if p.Parent() != UserPath(id) || p.Base() != "highscore" {
		t.Fatalf("parent/base wrong: %q %q", p.Parent(), p.Base())
	}
	if got, ok := UserIDFromPath(p); !ok || got != id {
		t.Fatalf("user id from path: %v %v", got, ok)
	}
	if _, ok := UserIDFromPath(UsersPath()); ok {
		t.Fatal("collection path has no user id")
	}
	if Path("").Parent() != "" || !Path("").IsRoot() {
		t.Fatal("root is its own parent")
	}
}

func TestParsePath(t *testing.T) {
	p, err := ParsePath("/users/abc/")
	if err != nil || p != "users/abc" {
		t.Fatalf("got %q %v", p, err)
	}
	for _, bad := range []string{"users//x", "users/a.b", "users/$x", "users/[0]", "users/#"} {
		if _, err := ParsePath(bad); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("expected invalid path for %q, got %v", bad, err)
		}
	}
}

func TestSortChildren(t *testing.T) {
	children := []Child{
		{Key: "d", Value: map[string]any{"highscore": "text"}},
		{Key: "c", Value: map[string]any{"highscore": int64(10)}},
		{Key: "b", Value: map[string]any{"username": "no score"}},
		{Key: "a", Value: map[string]any{"highscore": float64(3)}},
		{Key: "e", Value: map[string]any{"highscore": json.Number("10")}},
		{Key: "f", Value: map[string]any{"highscore": true}},
	}
	SortChildren(children, FieldHighscore)
	var keys string
	for _, c := range children {
		keys += c.Key
	}
	if keys != "bfacde" {
		t.Fatalf("unexpected order %s", keys)
	}
}

func TestChildrenOf(t *testing.T) {
	if ChildrenOf("scalar") != nil {
		t.Fatal("scalar has no children")
	}
	got := ChildrenOf(map[string]any{"x": 1, "y": 2})
	if len(got) != 2 {
		t.Fatalf("want 2 children got %d", len(got))
	}
}
