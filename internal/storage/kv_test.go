package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseKV runs the contract every KV implementation must satisfy.
func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, "token", "abc"))
	got, err := kv.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	require.NoError(t, kv.Set(ctx, "token", "def"))
	got, err = kv.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "def", got, "set must overwrite")

	require.NoError(t, kv.Delete(ctx, "token"))
	_, err = kv.Get(ctx, "token")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Delete(ctx, "token"), "deleting a missing key is not an error")
}

func TestMemoryKV(t *testing.T) {
	kv := NewMemoryKV()
	defer kv.Close()
	exerciseKV(t, kv)
}

func TestSQLiteKV(t *testing.T) {
	kv, err := NewSQLiteKV(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer kv.Close()
	exerciseKV(t, kv)
}

func TestSQLiteKVCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.db")
	kv, err := NewSQLiteKV(path)
	require.NoError(t, err)
	require.NoError(t, kv.Close())
}

func TestSQLiteKVPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	kv, err := NewSQLiteKV(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "currency", "EUR"))
	require.NoError(t, kv.Close())

	reopened, err := NewSQLiteKV(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "currency")
	require.NoError(t, err)
	assert.Equal(t, "EUR", got)
}
