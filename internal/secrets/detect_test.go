package secrets

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreExplicitBackends(t *testing.T) {
	t.Setenv("SKV_QUIET", "1")
	dir := t.TempDir()

	t.Run("memory", func(t *testing.T) {
		s, err := NewStore(Options{Backend: BackendMemory})
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, s)
		assert.Equal(t, "memory", Describe(s))
	})

	t.Run("file", func(t *testing.T) {
		s, err := NewStore(Options{
			Backend:     BackendFile,
			DataDir:     dir,
			Password:    "pw",
			FileOptions: []FileOption{WithKDFParams(testKDFParams)},
		})
		require.NoError(t, err)
		require.IsType(t, &FileStore{}, s)
		assert.Equal(t, filepath.Join(dir, credentialsFile), s.(*FileStore).Path())
		assert.Contains(t, Describe(s), "encrypted file")
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewStore(Options{Backend: "floppy"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown backend")
	})
}

func TestNewStoreHeadlessUsesFile(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("headless detection only applies on linux")
	}
	t.Setenv("SKV_QUIET", "1")
	t.Setenv("DISPLAY", "")
	t.Setenv("WAYLAND_DISPLAY", "")

	s, err := NewStore(Options{
		DataDir:     t.TempDir(),
		Password:    "pw",
		FileOptions: []FileOption{WithKDFParams(testKDFParams)},
	})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
}

func TestIsHeadless(t *testing.T) {
	if runtime.GOOS != "linux" {
		assert.False(t, IsHeadless())
		return
	}

	t.Setenv("DISPLAY", ":0")
	t.Setenv("WAYLAND_DISPLAY", "")
	assert.False(t, IsHeadless())

	t.Setenv("DISPLAY", "")
	assert.True(t, IsHeadless())
}

func TestWarnOnceMarker(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, warningShown(dir))
	markWarningsDone(dir)
	assert.True(t, warningShown(dir))
}
