package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/degiro/pkg/sdk/degiro"
)

func TestJSONFileStore(t *testing.T) {
	s := NewJSONFileStore(filepath.Join(t.TempDir(), "state"))

	var out map[string]int
	assert.ErrorIs(t, s.Load("a/b", &out), ErrNotExists)

	require.NoError(t, s.Save("a/b", map[string]int{"x": 1}))
	require.NoError(t, s.Load("a/b", &out))
	assert.Equal(t, map[string]int{"x": 1}, out)

	info, err := os.Stat(s.path("a/b"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.Equal(t, "a_b.json", filepath.Base(s.path("a/b")))

	require.NoError(t, s.Delete("a/b"))
	require.NoError(t, s.Delete("a/b"))
	assert.ErrorIs(t, s.Load("a/b", &out), ErrNotExists)
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()
	var store degiro.SessionStore = NewSessionStore(t.TempDir())

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	want := degiro.Session{ID: "sid", Account: 1001, UserToken: 77, URLs: degiro.URLs{TradingURL: "https://t/"}}
	require.NoError(t, store.Save(ctx, want))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Account, got.Account)
	assert.Equal(t, want.URLs, got.URLs)

	require.NoError(t, store.Clear(ctx))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}
