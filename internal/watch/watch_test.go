package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"
)

func TestWatcherTriggersAfterQuietPeriod(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "css")
	dist := filepath.Join(root, "dist")
	require.NoError(t, os.MkdirAll(src, 0o750))
	require.NoError(t, os.MkdirAll(dist, 0o750))

	calls := make(chan []string, 4)
	w, err := New([]string{src, filepath.Join(root, "missing")}, func(_ context.Context, changed []string) error {
		calls <- changed
		return nil
	}, WithDebounce(50*time.Millisecond), WithIgnore(dist))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register its directories.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dist, "ignored.css"), []byte("a{}"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "site.css"), []byte("a{}"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, ".site.css.swp"), []byte("x"), 0o600))

	select {
	case changed := <-calls:
		require.Equal(t, []string{filepath.Join(src, "site.css")}, changed)
	case <-time.After(5 * time.Second):
		t.Fatal("trigger not called")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestIgnoredAndRelevant(t *testing.T) {
	w := &Watcher{roots: []string{"/src/css"}, ignore: []string{"/src/dist"}}
	require.True(t, w.ignored("/src/dist/a.css"))
	require.False(t, w.ignored("/src/distx/a.css"))
	require.True(t, w.relevant(fsnotifyEvent("/src/css/a.css")))
	require.False(t, w.relevant(fsnotifyEvent("/src/js/a.js")))
	require.False(t, w.relevant(fsnotifyEvent("/src/css/a.css~")))
}

func fsnotifyEvent(name string) fsnotify.Event {
	return fsnotify.Event{Name: name, Op: fsnotify.Write}
}
