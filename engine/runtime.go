package engine

import (
	"context"
	"fmt"
	"log/slog"

	"catchkit/core"
)

// Runtime is shared by the engines: the rejoin queue and the presenter.
type Runtime struct {
	Queue *RejoinQueue
	UI    Presenter
	Log   *slog.Logger
}

// NewRuntime wires a runtime. A nil presenter discards output and a nil
// logger uses slog.Default.
func NewRuntime(queue *RejoinQueue, ui Presenter, log *slog.Logger) *Runtime {
	if queue == nil {
		panic("NewRuntime requires a rejoin queue")
	}
	if ui == nil {
		ui = discardPresenter{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runtime{Queue: queue, UI: ui, Log: log}
}

// spawn runs work on a new goroutine. The func it returns is queued for the
// UI goroutine. Operations are not cancellable once issued, so ctx bounds the
// remote calls only and never the hand-off. If the queue refuses the
// callback, dropped is called on the worker goroutine instead.
func (r *Runtime) spawn(ctx context.Context, op string, dropped func(error), work func(context.Context) func()) {
	go func() {
		then := work(ctx)
		if then == nil {
			return
		}
		err := r.Queue.Enqueue(context.WithoutCancel(ctx), PendingCallback{Op: op, Run: then})
		if err != nil {
			r.Log.Warn("completion dropped", "op", op, "error", err)
			if dropped != nil {
				dropped(err)
			}
		}
	}()
}

// fail reports a terminal failure: one message to the player, then the
// future is resolved. Must run on the UI goroutine.
func fail[T any](r *Runtime, f *Future[T], op string, err error, message string) {
	r.Log.Warn("operation failed", "op", op, "error", err)
	r.UI.DisplayMessage(message)
	var zero T
	f.resolve(zero, err)
}

// rejectNow handles a local validation failure on the caller's goroutine.
func rejectNow[T any](r *Runtime, op string, err error) *Future[T] {
	r.Log.Debug("validation failed", "op", op, "error", err)
	r.UI.DisplayMessage(core.UserMessage(err))
	var zero T
	return Resolved(zero, err)
}

func dropper[T any](f *Future[T]) func(error) {
	return func(err error) {
		var zero T
		f.resolve(zero, fmt.Errorf("completion dropped: %w", err))
	}
}
