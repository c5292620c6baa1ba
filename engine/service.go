package engine

import (
	"context"
	"log/slog"

	"catchkit/core"
	"catchkit/leaderboard"
)

// Service wires the session, the rejoin queue and the three engines behind
// one API. It is the composition root's handle on the subsystem.
type Service struct {
	Session      *Session
	Queue        *RejoinQueue
	Auth         *Auth
	Scores       *Scores
	Leaderboards *Leaderboards
}

// Options tunes NewService.
type Options struct {
	QueueSize    int
	AtomicScores bool
	Logger       *slog.Logger
}

func NewService(accounts AccountStore, store SharedStore, ui Presenter, opts Options) *Service {
	if accounts == nil || store == nil {
		panic("NewService requires non-nil accounts and store")
	}
	queue := NewRejoinQueue(opts.QueueSize, opts.Logger)
	rt := NewRuntime(queue, ui, opts.Logger)
	session := NewSession()
	return &Service{
		Session:      session,
		Queue:        queue,
		Auth:         NewAuth(accounts, store, session, rt),
		Scores:       NewScores(store, session, rt, WithAtomicWrites(opts.AtomicScores)),
		Leaderboards: NewLeaderboards(store, rt),
	}
}

func (s *Service) SignUp(ctx context.Context, username, email, password string) *Future[core.UserID] {
	return s.Auth.SignUp(ctx, username, email, password)
}

func (s *Service) SignIn(ctx context.Context, email, password string) *Future[core.UserID] {
	return s.Auth.SignIn(ctx, email, password)
}

func (s *Service) RequestPasswordReset(ctx context.Context, email string) *Future[struct{}] {
	return s.Auth.RequestPasswordReset(ctx, email)
}

func (s *Service) SignOut() { s.Auth.SignOut() }

func (s *Service) SubmitScore(ctx context.Context, score int64) *Future[ScoreOutcome] {
	return s.Scores.SubmitScore(ctx, score)
}

func (s *Service) FetchLeaderboard(ctx context.Context) *Future[[]leaderboard.Entry] {
	return s.Leaderboards.FetchLeaderboard(ctx)
}

// Frame drains the completions queued so far. Call it once per UI frame.
func (s *Service) Frame() (int, error) { return s.Queue.Drain() }

// Close stops accepting completions. Operations still in flight resolve
// their futures with ErrQueueClosed.
func (s *Service) Close() { s.Queue.Close() }
