package engine

import (
	"context"
	"fmt"

	"catchkit/core"
)

// ScoreOutcome describes what SubmitScore did.
type ScoreOutcome struct {
	UserID core.UserID
	// Highscore is the stored value after the operation.
	Highscore int64
	// Previous is the value read before writing; HadPrevious is false when
	// nothing was stored.
	Previous    int64
	HadPrevious bool
	Written     bool
	// Skipped is set when nobody is signed in.
	Skipped bool
}

// Scores keeps users/{id}/highscore at the best score submitted.
type Scores struct {
	store   SharedStore
	session *Session
	rt      *Runtime
	atomic  bool
}

// ScoresOption configures Scores.
type ScoresOption func(*Scores)

// WithAtomicWrites makes Scores use the store's ConditionalWriter when it has
// one. Without it the engine reads then writes, which can lose an update when
// two sessions of the same user submit concurrently.
func WithAtomicWrites(enabled bool) ScoresOption {
	return func(s *Scores) { s.atomic = enabled }
}

func NewScores(store SharedStore, session *Session, rt *Runtime, opts ...ScoresOption) *Scores {
	if store == nil || session == nil || rt == nil {
		panic("NewScores requires non-nil store, session, and runtime")
	}
	s := &Scores{store: store, session: session, rt: rt}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Atomic reports whether submissions go through ConditionalWriter.
func (s *Scores) Atomic() bool {
	_, ok := s.store.(ConditionalWriter)
	return s.atomic && ok
}

// SubmitScore records score for the signed-in user if it beats the stored
// highscore. Without a signed-in user it resolves immediately as skipped.
func (s *Scores) SubmitScore(ctx context.Context, score int64) *Future[ScoreOutcome] {
	const op = "score"
	if err := core.ValidateScore(score); err != nil {
		return rejectNow[ScoreOutcome](s.rt, op, err)
	}
	user, ok := s.session.CurrentUser()
	if !ok {
		s.rt.Log.Debug("score ignored, nobody signed in", "score", score)
		return Resolved(ScoreOutcome{Skipped: true}, nil)
	}
	f := newFuture[ScoreOutcome]()
	s.rt.spawn(ctx, op, dropper(f), func(ctx context.Context) func() {
		var (
			out ScoreOutcome
			err error
		)
		if cw, ok := s.store.(ConditionalWriter); ok && s.atomic {
			out, err = s.submitAtomic(ctx, cw, user, score)
		} else {
			out, err = s.submitReadThenWrite(ctx, user, score)
		}
		if err != nil {
			serr := &core.ScoreSyncError{UserID: user, Err: err}
			return func() { fail(s.rt, f, op, serr, serr.UserMessage()) }
		}
		return func() {
			if out.Written {
				s.rt.Log.Info("highscore updated", "user_id", user, "highscore", out.Highscore, "previous", out.Previous)
				s.rt.UI.DisplayMessage(fmt.Sprintf("New high score: %d", out.Highscore))
			}
			f.resolve(out, nil)
		}
	})
	return f
}

// submitReadThenWrite is two independent remote calls with no
// compare-and-swap in between.
func (s *Scores) submitReadThenWrite(ctx context.Context, user core.UserID, score int64) (ScoreOutcome, error) {
	path := core.HighscorePath(user)
	out := ScoreOutcome{UserID: user}
	v, present, err := s.store.Read(ctx, path)
	if err != nil {
		return out, fmt.Errorf("read highscore: %w", err)
	}
	if present {
		out.HadPrevious = true
		out.Previous = core.ScoreOrZero(v)
		if score <= out.Previous {
			out.Highscore = out.Previous
			return out, nil
		}
	}
	if err := s.store.Write(ctx, path, score); err != nil {
		return out, fmt.Errorf("write highscore: %w", err)
	}
	out.Highscore = score
	out.Written = true
	return out, nil
}

func (s *Scores) submitAtomic(ctx context.Context, cw ConditionalWriter, user core.UserID, score int64) (ScoreOutcome, error) {
	out := ScoreOutcome{UserID: user}
	current, written, err := cw.WriteIfGreater(ctx, core.HighscorePath(user), score)
	if err != nil {
		return out, fmt.Errorf("conditional write highscore: %w", err)
	}
	out.Highscore = current
	out.Written = written
	if !written {
		out.HadPrevious = true
		out.Previous = current
	}
	return out, nil
}
