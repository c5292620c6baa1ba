package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catchkit/core"
	"catchkit/realtime"
)

type collector struct {
	mu      sync.Mutex
	changes []core.Change
}

func (c *collector) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ch core.Change
		_ = json.NewDecoder(r.Body).Decode(&ch)
		c.mu.Lock()
		c.changes = append(c.changes, ch)
		c.mu.Unlock()
		w.WriteHeader(status)
	}
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.changes)
}

func TestSink_OnChangePostsHighscores(t *testing.T) {
	var got collector
	srv := httptest.NewServer(got.handler(http.StatusNoContent))
	defer srv.Close()

	sink := New([]string{srv.URL, srv.URL})
	sink.OnChange(context.Background(), core.NewChange(core.HighscorePath("u1"), int64(40)))
	sink.OnChange(context.Background(), core.NewChange(core.UsernamePath("u1"), "alice"))
	sink.OnChange(context.Background(), core.NewChange(core.HighscorePath("u1"), nil))

	require.Equal(t, 2, got.len())
	assert.Equal(t, core.HighscorePath("u1"), got.changes[0].Path)
	assert.EqualValues(t, 40, got.changes[0].Data)
}

func TestSink_CustomFilterAndFailures(t *testing.T) {
	var got collector
	srv := httptest.NewServer(got.handler(http.StatusInternalServerError))
	defer srv.Close()

	sink := New([]string{srv.URL}, WithFilter(func(core.Change) bool { return true }))
	sink.OnChange(context.Background(), core.NewChange(core.UsernamePath("u1"), "alice"))
	assert.Equal(t, 1, got.len())
}

func TestSink_RunForwardsHubChanges(t *testing.T) {
	var got collector
	srv := httptest.NewServer(got.handler(http.StatusOK))
	defer srv.Close()

	hub := realtime.NewHub()
	sink := New([]string{srv.URL})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		sink.Run(ctx, hub)
	}()

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)
	hub.Broadcast(ctx, core.NewChange(core.HighscorePath("u2"), int64(9)))
	require.Eventually(t, func() bool { return got.len() == 1 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, 0, hub.Subscribers())
}

func TestSink_DisabledWithoutEndpoints(t *testing.T) {
	sink := New(nil)
	assert.False(t, sink.Enabled())
	// returns immediately
	sink.Run(context.Background(), realtime.NewHub())
}
