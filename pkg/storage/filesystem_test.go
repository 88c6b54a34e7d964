package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndOpen(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.Save("imports/s1/t1/upload.xlsx", []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, "imports/s1/t1/upload.xlsx", name)

	file, err := store.Open(name)
	require.NoError(t, err)
	defer file.Close()
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestDeleteMissingFileIsNoop(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Delete("does/not/exist.xlsx"))
}

func TestCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("old.xlsx", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("fresh.xlsx", []byte("fresh"))
	require.NoError(t, err)

	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.xlsx"), stale, stale))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.xlsx"}, deleted)

	_, err = store.Open("fresh.xlsx")
	assert.NoError(t, err)
	_, err = store.Open("old.xlsx")
	assert.Error(t, err)
}
