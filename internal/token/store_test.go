package token

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got, "new store should be empty")

	require.NoError(t, s.Set(ctx, "first"))
	require.NoError(t, s.Set(ctx, "second"))
	got, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", got, "last write wins")

	require.NoError(t, s.Remove(ctx))
	got, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.NoError(t, s.Remove(ctx), "removing an empty slot is harmless")
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "auth_token"), "auth_token")
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFileStore_SurvivesNewInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth_token")
	ctx := context.Background()

	first, err := NewFileStore(path, "auth_token")
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "persisted"))

	second, err := NewFileStore(path, "auth_token")
	require.NoError(t, err)
	got, err := second.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "persisted", got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_DefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	s, err := NewFileStore("", "auth_token")
	require.NoError(t, err)
	assert.Equal(t, "auth_token", filepath.Base(s.Path()))
	assert.Equal(t, "coupon-console", filepath.Base(filepath.Dir(s.Path())))
}

func TestFromContext(t *testing.T) {
	fallback := NewMemoryStore()
	visitor := NewMemoryStore()

	assert.Same(t, fallback, FromContext(context.Background(), fallback))
	assert.Same(t, visitor, FromContext(WithStore(context.Background(), visitor), fallback))
	assert.Same(t, fallback, FromContext(WithStore(context.Background(), nil), fallback))
}
