package ics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cal.ics")
	other := filepath.Join(dir, "other.ics")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o600))

	changes := make(chan string, 10)
	w, err := newWatcher(func(p string) { changes <- p }, 100*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.AddFile(path))
	require.NoError(t, w.AddFile(path))

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte('b' + i)}, 0o600))
	}
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o600))

	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	select {
	case got := <-changes:
		assert.Equal(t, abs, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	select {
	case got := <-changes:
		t.Fatalf("unexpected second change for %s", got)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherRemoveFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cal.ics")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o600))

	changes := make(chan string, 10)
	w, err := newWatcher(func(p string) { changes <- p }, 20*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, w.AddFile(path))
	require.NoError(t, w.RemoveFile(path))
	require.NoError(t, os.WriteFile(path, []byte("b"), 0o600))

	select {
	case got := <-changes:
		t.Fatalf("unexpected change for %s", got)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
