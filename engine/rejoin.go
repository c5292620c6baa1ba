package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

var (
	// ErrQueueClosed is returned when enqueuing to, or waiting on, a closed queue.
	ErrQueueClosed = errors.New("rejoin queue closed")
	// ErrConsumerBusy is returned when a second goroutine tries to drain.
	ErrConsumerBusy = errors.New("rejoin queue already has an active consumer")
)

// DefaultQueueSize bounds the rejoin queue when no size is configured.
const DefaultQueueSize = 256

// PendingCallback is a completion waiting to run on the UI goroutine.
type PendingCallback struct {
	Op  string
	Seq uint64
	Run func()
}

// RejoinQueue marshals completions from worker goroutines onto the single
// goroutine that owns the session and the presenter. Any goroutine may
// enqueue; exactly one drains at a time, in enqueue order.
type RejoinQueue struct {
	ch        chan PendingCallback
	mu        sync.Mutex // serializes producers so Seq follows channel order
	seq       uint64
	done      chan struct{}
	closeOnce sync.Once
	consuming atomic.Bool
	log       *slog.Logger
}

// NewRejoinQueue creates a queue holding at most size pending callbacks.
func NewRejoinQueue(size int, log *slog.Logger) *RejoinQueue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &RejoinQueue{
		ch:   make(chan PendingCallback, size),
		done: make(chan struct{}),
		log:  log,
	}
}

// Enqueue appends cb, blocking while the queue is full. It fails when ctx is
// done or the queue is closed.
func (q *RejoinQueue) Enqueue(ctx context.Context, cb PendingCallback) error {
	if cb.Run == nil {
		return errors.New("pending callback has no Run func")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	cb.Seq = q.seq + 1
	select {
	case q.ch <- cb:
		q.seq = cb.Seq
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of callbacks waiting.
func (q *RejoinQueue) Len() int { return len(q.ch) }

// Close stops accepting callbacks. Callbacks already queued can still be drained.
func (q *RejoinQueue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

// Closed reports whether Close was called.
func (q *RejoinQueue) Closed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

// DrainOne runs at most one queued callback without blocking.
func (q *RejoinQueue) DrainOne() (bool, error) {
	if !q.consuming.CompareAndSwap(false, true) {
		return false, ErrConsumerBusy
	}
	defer q.consuming.Store(false)
	select {
	case cb := <-q.ch:
		q.execute(cb)
		return true, nil
	default:
		return false, nil
	}
}

// Drain runs the callbacks queued when it was called; callbacks enqueued
// while it runs wait for the next frame.
func (q *RejoinQueue) Drain() (int, error) {
	if !q.consuming.CompareAndSwap(false, true) {
		return 0, ErrConsumerBusy
	}
	defer q.consuming.Store(false)
	n := len(q.ch)
	ran := 0
	for ; ran < n; ran++ {
		select {
		case cb := <-q.ch:
			q.execute(cb)
		default:
			return ran, nil
		}
	}
	return ran, nil
}

// Next waits for one callback and runs it. After Close it keeps returning
// queued callbacks and then ErrQueueClosed.
func (q *RejoinQueue) Next(ctx context.Context) error {
	if !q.consuming.CompareAndSwap(false, true) {
		return ErrConsumerBusy
	}
	defer q.consuming.Store(false)
	select {
	case cb := <-q.ch:
		q.execute(cb)
		return nil
	default:
	}
	select {
	case cb := <-q.ch:
		q.execute(cb)
		return nil
	case <-q.done:
		select {
		case cb := <-q.ch:
			q.execute(cb)
			return nil
		default:
			return ErrQueueClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains until ctx is done or the queue is closed and empty. The calling
// goroutine becomes the UI goroutine for its duration.
func (q *RejoinQueue) Run(ctx context.Context) error {
	for {
		err := q.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrQueueClosed):
			return nil
		default:
			return err
		}
	}
}

func (q *RejoinQueue) execute(cb PendingCallback) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("pending callback panicked", "op", cb.Op, "seq", cb.Seq, "panic", fmt.Sprint(r))
		}
	}()
	cb.Run()
}
