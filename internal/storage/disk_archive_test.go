package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskArchive_PutDelete(t *testing.T) {
	dir := t.TempDir()
	archive, err := NewDiskArchive(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, archive.Put(ctx, "products/1.jpg", []byte("jpeg"), "image/jpeg"))
	data, err := os.ReadFile(filepath.Join(dir, "products", "1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)

	require.NoError(t, archive.Put(ctx, "products/1.jpg", []byte("again"), "image/jpeg"))
	data, err = os.ReadFile(filepath.Join(dir, "products", "1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("again"), data)

	require.NoError(t, archive.Delete(ctx, "products/1.jpg"))
	_, err = os.Stat(filepath.Join(dir, "products", "1.jpg"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, archive.Delete(ctx, "products/1.jpg"), "missing key")
}

func TestDiskArchive_RejectsEscapingKeys(t *testing.T) {
	archive, err := NewDiskArchive(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", ".", "..", "../etc/passwd", "/abs", "a/../../b", `a\b`} {
		assert.Error(t, archive.Put(context.Background(), key, []byte("x"), ""), key)
	}
}

func TestNewDiskArchive_RequiresDir(t *testing.T) {
	_, err := NewDiskArchive("")
	assert.Error(t, err)
}
