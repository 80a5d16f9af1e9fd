package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBindingFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/w/.qlink/binding.yml", true},
		{"/w/.qlink/binding.yaml", true},
		{"/w/.qlink/binding.toml", true},
		{"/w/.qlink/binding.yml.tmp", false},
		{"/w/.qlink/other.yml", false},
		{"/w/.qlink/binding.json", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isBindingFile(tt.path), tt.path)
	}
}

func TestWatcherReportsBindingChanges(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".qlink")
	changes := make(chan string, 10)

	w, err := NewWatcher(dir, 50, func(file string) { changes <- file })
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, dir, w.Dir())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	// Unrelated files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	// A burst of writes settles into a single notification
	path := filepath.Join(dir, "binding.yml")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("projectKey: p\n"), 0600))
	}

	select {
	case file := <-changes:
		assert.Equal(t, "binding.yml", filepath.Base(file))
	case <-time.After(3 * time.Second):
		t.Fatal("expected a change notification")
	}

	select {
	case file := <-changes:
		t.Fatalf("unexpected extra notification for %s", file)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, os.Remove(path))
	select {
	case file := <-changes:
		assert.Equal(t, "binding.yml", filepath.Base(file))
	case <-time.After(3 * time.Second):
		t.Fatal("expected a notification for the removal")
	}
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), 0, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
