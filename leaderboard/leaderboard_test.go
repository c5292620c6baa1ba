package leaderboard

import (
	"testing"

	"catchkit/core"
)

func rec(key string, fields map[string]any) core.Child {
	return core.Child{Key: key, Value: fields}
}

func TestBuildSortsDescending(t *testing.T) {
	entries := Build([]core.Child{
		rec("u1", map[string]any{"username": "alice", "highscore": int64(5)}),
		rec("u2", map[string]any{"username": "bob", "highscore": float64(10)}),
		rec("u3", map[string]any{"username": "carol", "highscore": "7"}),
	})
	want := []Entry{{"bob", 10}, {"carol", 7}, {"alice", 5}}
	if len(entries) != len(want) {
		t.Fatalf("unexpected %#v", entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Fatalf("position %d: got %#v want %#v", i, entries[i], want[i])
		}
	}
}

func TestBuildDefaults(t *testing.T) {
	entries := Build([]core.Child{
		rec("u1", map[string]any{"highscore": int64(3)}),
		rec("u2", map[string]any{"username": "nan", "highscore": "lots"}),
		rec("u3", map[string]any{"username": "none"}),
		{Key: "u4", Value: "not a record"},
	})
	if entries[0] != (Entry{UnknownUsername, 3}) {
		t.Fatalf("missing username should be Unknown: %#v", entries[0])
	}
	for _, e := range entries[1:] {
		if e.Highscore != 0 {
			t.Fatalf("expected zero score, got %#v", e)
		}
	}
}

func TestBuildRendersNonStringUsernames(t *testing.T) {
	entries := Build([]core.Child{
		rec("u1", map[string]any{"username": int64(42), "highscore": int64(7)}),
		rec("u2", map[string]any{"username": true, "highscore": int64(1)}),
	})
	want := []Entry{{"42", 7}, {"true", 1}}
	for i := range want {
		if entries[i] != want[i] {
			t.Fatalf("position %d: got %#v want %#v", i, entries[i], want[i])
		}
	}
}

func TestBuildEmpty(t *testing.T) {
	entries := Build(nil)
	if entries == nil || len(entries) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", entries)
	}
}

func TestRankIsStableForTies(t *testing.T) {
	entries := []Entry{{"a", 1}, {"b", 2}, {"c", 1}, {"d", 2}}
	Rank(entries)
	got := ""
	for _, e := range entries {
		got += e.Username
	}
	if got != "bdac" {
		t.Fatalf("unstable order %s", got)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Highscore < entries[i].Highscore {
			t.Fatalf("not non-increasing at %d", i)
		}
	}
}

func TestTopNAndRankOf(t *testing.T) {
	entries := []Entry{{"bob", 10}, {"alice", 5}}
	if len(TopN(entries, 1)) != 1 || len(TopN(entries, 5)) != 2 || TopN(entries, 0) != nil {
		t.Fatal("TopN bounds wrong")
	}
	if r, ok := RankOf(entries, "alice"); !ok || r != 2 {
		t.Fatalf("rank of alice %d %v", r, ok)
	}
	if _, ok := RankOf(entries, "zed"); ok {
		t.Fatal("unknown user has no rank")
	}
}
