package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestObjectStore(t *testing.T) (*LocalObjectStore, string) {
	t.Helper()
	dir := t.TempDir()
	objectStore, err := NewLocalObjectStore(dir)
	require.NoError(t, err)
	return objectStore, dir
}

func TestLocalObjectStore_PutObject(t *testing.T) {
	objectStore, baseDir := setupTestObjectStore(t)

	bucket := "training-shards"
	key := "run-1/shard-00000.tar"
	content := []byte("tar bytes")

	err := objectStore.PutObject(context.Background(), bucket, key, bytes.NewReader(content))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(baseDir, bucket, "run-1", "shard-00000.tar"))
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestLocalObjectStore_CreateBucket(t *testing.T) {
	objectStore, baseDir := setupTestObjectStore(t)

	require.NoError(t, objectStore.CreateBucket(context.Background(), "training-shards"))

	info, err := os.Stat(filepath.Join(baseDir, "training-shards"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalObjectStore_UploadDir(t *testing.T) {
	objectStore, baseDir := setupTestObjectStore(t)

	src := t.TempDir()
	files := []string{"shard-00000.tar", "shard-00001.tar", "shard-00002.tar"}
	for _, name := range files {
		require.NoError(t, os.WriteFile(filepath.Join(src, name), []byte(name), os.ModePerm))
	}

	err := objectStore.UploadDir(context.Background(), "training-shards", "run-7", src)
	require.NoError(t, err)

	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(baseDir, "training-shards", "run-7", name))
		require.NoError(t, err)
		assert.Equal(t, []byte(name), data)
	}
}

func TestLocalObjectStore_UploadDirMissingSource(t *testing.T) {
	objectStore, _ := setupTestObjectStore(t)

	err := objectStore.UploadDir(context.Background(), "training-shards", "", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
