// Package ui renders engine output on a terminal.
package ui

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"catchkit/leaderboard"
)

// DefaultMessageTTL is how long a transient message stays visible.
const DefaultMessageTTL = 3 * time.Second

// Console is a Presenter writing to w. It tracks the visible message and
// the current scene the way a game HUD would; Advance moves its clock.
type Console struct {
	mu  sync.Mutex
	w   io.Writer
	ttl time.Duration

	message   string
	remaining time.Duration
	scene     string
	board     []leaderboard.Entry
}

// NewConsole returns a console with the given message TTL. A ttl of zero
// uses DefaultMessageTTL.
func NewConsole(w io.Writer, ttl time.Duration) *Console {
	if ttl <= 0 {
		ttl = DefaultMessageTTL
	}
	return &Console{w: w, ttl: ttl}
}

func (c *Console) DisplayMessage(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.message = text
	c.remaining = c.ttl
	fmt.Fprintln(c.w, text)
}

func (c *Console) DisplayLeaderboard(entries []leaderboard.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.board = append(c.board[:0], entries...)
	if len(entries) == 0 {
		fmt.Fprintln(c.w, "Leaderboard is empty.")
		return
	}
	tw := tabwriter.NewWriter(c.w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\tPlayer\tScore\t")
	for i, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t\n", i+1, e.Username, e.Highscore)
	}
	_ = tw.Flush()
}

func (c *Console) NavigateToScene(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scene = name
	fmt.Fprintf(c.w, "-> %s\n", name)
}

// Advance moves the console clock by dt and clears the message once its
// TTL has run out.
func (c *Console) Advance(dt time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.message == "" {
		return
	}
	c.remaining -= dt
	if c.remaining <= 0 {
		c.message = ""
		c.remaining = 0
	}
}

// Message returns the visible message, or "" once it has expired.
func (c *Console) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// Scene returns the last scene navigated to.
func (c *Console) Scene() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scene
}

// Leaderboard returns a copy of the last leaderboard shown.
func (c *Console) Leaderboard() []leaderboard.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]leaderboard.Entry(nil), c.board...)
}
