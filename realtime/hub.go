// Package realtime fans shared-store changes out to live listeners.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"catchkit/core"
)

type subscription struct {
	ch     chan core.Change
	prefix core.Path
}

// Hub delivers each change to the subscribers whose path it touches.
// Slow subscribers miss changes rather than stall writers; Dropped counts
// what they missed.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]subscription
	next    int
	dropped atomic.Uint64
}

func NewHub() *Hub { return &Hub{subs: map[int]subscription{}} }

// Subscribe registers a listener for changes under prefix (the root for
// all changes). The channel is closed by Unsubscribe.
func (h *Hub) Subscribe(prefix core.Path, buffer int) (int, <-chan core.Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	sub := subscription{ch: make(chan core.Change, buffer), prefix: prefix}
	h.subs[h.next] = sub
	return h.next, sub.ch
}

func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped on full buffers.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Broadcast never blocks. The read lock is held while sending so that
// Unsubscribe cannot close a channel mid-send.
func (h *Hub) Broadcast(_ context.Context, c core.Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if !c.Under(sub.prefix) {
			continue
		}
		select {
		case sub.ch <- c:
		default:
			h.dropped.Add(1)
		}
	}
}

// MarshalJSON encodes a change for WebSocket clients.
func MarshalJSON(c core.Change) []byte {
	b, _ := json.Marshal(c)
	return b
}
