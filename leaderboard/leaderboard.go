package leaderboard

import (
	"fmt"
	"sort"

	"catchkit/core"
)

// UnknownUsername labels records that have no username field.
const UnknownUsername = "Unknown"

// Entry is one rendered leaderboard row.
type Entry struct {
	Username  string `json:"username"`
	Highscore int64  `json:"highscore"`
}

// Build projects user records into entries ranked by highscore, highest
// first. Records without a username are labelled Unknown and records with a
// missing or non-numeric highscore count as 0. Equal scores keep the order in
// which the store returned them.
func Build(children []core.Child) []Entry {
	out := make([]Entry, 0, len(children))
	for _, c := range children {
		out = append(out, project(c))
	}
	Rank(out)
	return out
}

func project(c core.Child) Entry {
	e := Entry{Username: UnknownUsername}
	if v, ok := c.Field(core.FieldUsername); ok {
		e.Username = fmt.Sprint(v)
	}
	if v, ok := c.Field(core.FieldHighscore); ok {
		e.Highscore = core.ScoreOrZero(v)
	}
	return e
}

// Rank sorts entries in place by score descending. The sort is stable.
func Rank(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Highscore > entries[j].Highscore
	})
}

// TopN returns at most n leading entries of a ranked slice.
func TopN(entries []Entry, n int) []Entry {
	if n <= 0 {
		return nil
	}
	if n > len(entries) {
		n = len(entries)
	}
	return entries[:n]
}

// RankOf returns the 1-based position of the first entry for username.
func RankOf(entries []Entry, username string) (int, bool) {
	for i, e := range entries {
		if e.Username == username {
			return i + 1, true
		}
	}
	return 0, false
}
