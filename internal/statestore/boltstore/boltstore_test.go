package boltstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *KV {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	kv, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func TestSetAndGet(t *testing.T) {
	kv := openTemp(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k1", []byte("v1")))

	value, ok, err := kv.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), value)
}

func TestGetMissingKey(t *testing.T) {
	kv := openTemp(t)
	ctx := context.Background()

	value, ok, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, value)
}

func TestCreateIfAbsentWinsOnce(t *testing.T) {
	kv := openTemp(t)
	ctx := context.Background()

	created, err := kv.CreateIfAbsent(ctx, "job1", []byte("first"))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = kv.CreateIfAbsent(ctx, "job1", []byte("second"))
	require.NoError(t, err)
	assert.False(t, created)

	value, ok, err := kv.Get(ctx, "job1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("first"), value, "losing writer must not overwrite")
}

func TestSetOverwritesExisting(t *testing.T) {
	kv := openTemp(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", []byte("a")))
	require.NoError(t, kv.Set(ctx, "k", []byte("b")))

	value, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("b"), value)
}
