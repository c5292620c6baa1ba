package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catchkit/core"
)

func TestMemoryStore_ReadWrite(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, ok, err := s.Read(ctx, core.UserPath("u1"))
	require.NoError(t, err)
	assert.False(t, ok)

	profile := core.UserProfile{UserID: "u1", Username: "alice", Email: "a@x.io"}
	require.NoError(t, s.Write(ctx, core.UserPath("u1"), profile.Value()))
	require.NoError(t, s.Write(ctx, core.HighscorePath("u1"), 40))

	v, ok, err := s.Read(ctx, core.UsernamePath("u1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", v)

	v, ok, err = s.Read(ctx, core.HighscorePath("u1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(40), v)

	// Replacing the profile drops the highscore, as a full PUT does.
	require.NoError(t, s.Write(ctx, core.UserPath("u1"), profile.Value()))
	_, ok, _ = s.Read(ctx, core.HighscorePath("u1"))
	assert.False(t, ok)
}

func TestMemoryStore_ReadReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, core.UserPath("u1"), map[string]any{"username": "alice"}))

	v, _, _ := s.Read(ctx, core.UserPath("u1"))
	v.(map[string]any)["username"] = "mallory"

	got, _, _ := s.Read(ctx, core.UsernamePath("u1"))
	assert.Equal(t, "alice", got)
}

func TestMemoryStore_DeletePrunesParents(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, core.HighscorePath("u1"), 5))
	require.NoError(t, s.Write(ctx, core.HighscorePath("u1"), nil))

	_, ok, err := s.Read(ctx, core.UserPath("u1"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, s.Snapshot())
}

func TestMemoryStore_InvalidPath(t *testing.T) {
	s := New()
	err := s.Write(context.Background(), core.Path("users/a.b"), 1)
	assert.ErrorIs(t, err, core.ErrInvalidPath)
}

func TestMemoryStore_OrderedCollection(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, core.UserPath("a"), map[string]any{"username": "ann", "highscore": 30}))
	require.NoError(t, s.Write(ctx, core.UserPath("b"), map[string]any{"username": "bob"}))
	require.NoError(t, s.Write(ctx, core.UserPath("c"), map[string]any{"username": "cid", "highscore": 10}))

	children, err := s.ReadOrderedCollection(ctx, core.UsersPath(), core.FieldHighscore)
	require.NoError(t, err)
	keys := make([]string, 0, len(children))
	for _, c := range children {
		keys = append(keys, c.Key)
	}
	assert.Equal(t, []string{"b", "c", "a"}, keys)

	empty, err := s.ReadOrderedCollection(ctx, core.Path("nothing"), core.FieldHighscore)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStore_WriteIfGreater(t *testing.T) {
	s := New()
	ctx := context.Background()
	path := core.HighscorePath("u1")

	cur, written, err := s.WriteIfGreater(ctx, path, 50)
	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, int64(50), cur)

	cur, written, err = s.WriteIfGreater(ctx, path, 50)
	require.NoError(t, err)
	assert.False(t, written)
	assert.Equal(t, int64(50), cur)

	require.NoError(t, s.Write(ctx, path, "garbage"))
	cur, written, err = s.WriteIfGreater(ctx, path, 1)
	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, int64(1), cur)
}

func TestMemoryStore_SnapshotLoad(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, core.HighscorePath("u1"), 7))

	other := New()
	require.NoError(t, other.Load(s.Snapshot()))
	v, ok, err := other.Read(ctx, core.HighscorePath("u1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(7), v)
}
