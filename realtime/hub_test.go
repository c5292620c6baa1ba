package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catchkit/adapters/memory"
	"catchkit/core"
	"catchkit/engine"
)

func TestHubSubscribeBroadcastUnsubscribe(t *testing.T) {
	h := NewHub()
	id, ch := h.Subscribe("", 1)
	assert.Equal(t, 1, h.Subscribers())

	h.Broadcast(context.Background(), core.NewChange(core.HighscorePath("bob"), int64(10)))
	received := <-ch
	assert.Equal(t, core.ChangePut, received.Kind)
	assert.Equal(t, core.HighscorePath("bob"), received.Path)

	// A full buffer drops instead of blocking.
	h.Broadcast(context.Background(), core.NewChange(core.HighscorePath("bob"), int64(11)))
	h.Broadcast(context.Background(), core.NewChange(core.HighscorePath("bob"), int64(12)))
	assert.Equal(t, uint64(1), h.Dropped())

	h.Unsubscribe(id)
	<-ch
	_, ok := <-ch
	assert.False(t, ok, "expected channel closed after unsubscribe")
	assert.Zero(t, h.Subscribers())
}

func TestMarshalJSON(t *testing.T) {
	b := MarshalJSON(core.NewChange(core.UserPath("alice"), nil))
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "delete", out["event"])
	assert.Equal(t, "users/alice", out["path"])
}

func TestObserveBroadcastsWrites(t *testing.T) {
	h := NewHub()
	_, ch := h.Subscribe("", 4)
	store := Observe(memory.New(), h)
	ctx := context.Background()

	cw, ok := store.(engine.ConditionalWriter)
	require.True(t, ok, "memory store supports conditional writes")

	require.NoError(t, store.Write(ctx, core.UserPath("u1"), map[string]any{"username": "ann"}))
	c := <-ch
	assert.Equal(t, core.UserPath("u1"), c.Path)
	assert.Equal(t, map[string]any{"username": "ann"}, c.Data)

	_, written, err := cw.WriteIfGreater(ctx, core.HighscorePath("u1"), 4)
	require.NoError(t, err)
	require.True(t, written)
	c = <-ch
	assert.Equal(t, int64(4), c.Data)

	_, written, err = cw.WriteIfGreater(ctx, core.HighscorePath("u1"), 2)
	require.NoError(t, err)
	assert.False(t, written)
	assert.Empty(t, ch)
}

func TestChangeUnder(t *testing.T) {
	c := core.NewChange(core.HighscorePath("u1"), int64(1))
	assert.True(t, c.Under(core.UsersPath()))
	assert.True(t, c.Under(core.HighscorePath("u1")))
	assert.False(t, c.Under(core.UserPath("u2")))
	assert.True(t, c.Under(core.Path("")))

	root := core.NewChange(core.UsersPath(), nil)
	assert.True(t, root.Under(core.UserPath("u2")))
}

func TestHubFiltersByPrefix(t *testing.T) {
	h := NewHub()
	_, mine := h.Subscribe(core.UserPath("u1"), 4)
	_, all := h.Subscribe(core.UsersPath(), 4)
	ctx := context.Background()

	h.Broadcast(ctx, core.NewChange(core.HighscorePath("u2"), int64(3)))
	h.Broadcast(ctx, core.NewChange(core.HighscorePath("u1"), int64(5)))

	require.Len(t, mine, 1)
	assert.Equal(t, core.HighscorePath("u1"), (<-mine).Path)
	assert.Len(t, all, 2)
	assert.Zero(t, h.Dropped())
}
