package badger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/newsdesk/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "nested", "db")
	backend, err := OpenBackend(tmpDir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	info, err := os.Stat(tmpDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenBackend_NotADirectory(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(tmpFile, []byte("x"), 0644))

	backend, err := OpenBackend(tmpFile, false)
	if backend != nil {
		backend.Close()
	}
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrStorageUnavailable))
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	assert.False(t, backend.IsClosed())
	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())
}

func TestStoresLifecycle(t *testing.T) {
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	require.NotNil(t, stores.Markers)
	require.NotNil(t, stores.Jobs)
	require.NotNil(t, stores.Sessions)
	require.NotNil(t, stores.Chunks)
	require.NoError(t, stores.Close())
	assert.True(t, stores.Backend.IsClosed())
}
