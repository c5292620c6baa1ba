package engine

import (
	"context"

	"catchkit/core"
	"catchkit/leaderboard"
)

// Leaderboards fetches and ranks every user record.
type Leaderboards struct {
	store SharedStore
	rt    *Runtime
}

func NewLeaderboards(store SharedStore, rt *Runtime) *Leaderboards {
	if store == nil || rt == nil {
		panic("NewLeaderboards requires non-nil store and runtime")
	}
	return &Leaderboards{store: store, rt: rt}
}

// FetchLeaderboard reads users ordered by highscore and ranks them locally,
// highest first, since the store's ordering direction is not relied upon.
// Each call re-reads everything.
func (l *Leaderboards) FetchLeaderboard(ctx context.Context) *Future[[]leaderboard.Entry] {
	const op = "leaderboard"
	f := newFuture[[]leaderboard.Entry]()
	l.rt.spawn(ctx, op, dropper(f), func(ctx context.Context) func() {
		children, err := l.store.ReadOrderedCollection(ctx, core.UsersPath(), core.FieldHighscore)
		if err != nil {
			qerr := &core.QueryError{Err: err}
			return func() { fail(l.rt, f, op, qerr, qerr.UserMessage()) }
		}
		entries := leaderboard.Build(children)
		return func() {
			l.rt.Log.Debug("leaderboard loaded", "entries", len(entries))
			l.rt.UI.DisplayLeaderboard(entries)
			f.resolve(entries, nil)
		}
	})
	return f
}
