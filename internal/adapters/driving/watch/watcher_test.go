package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls atomic.Int32
}

func (r *countingRefresher) RefreshSettings(context.Context) error {
	r.calls.Add(1)
	return nil
}

func TestWatcher_Relevant(t *testing.T) {
	w := New("/tmp/scribe/settings.toml", &countingRefresher{}, 0)

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write to file", fsnotify.Event{Name: "/tmp/scribe/settings.toml", Op: fsnotify.Write}, true},
		{"create file", fsnotify.Event{Name: "/tmp/scribe/settings.toml", Op: fsnotify.Create}, true},
		{"rename onto file", fsnotify.Event{Name: "/tmp/scribe/settings.toml", Op: fsnotify.Rename}, true},
		{"chmod only", fsnotify.Event{Name: "/tmp/scribe/settings.toml", Op: fsnotify.Chmod}, false},
		{"write plus chmod", fsnotify.Event{Name: "/tmp/scribe/settings.toml", Op: fsnotify.Write | fsnotify.Chmod}, true},
		{"other file", fsnotify.Event{Name: "/tmp/scribe/scribe.yaml", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.relevant(tt.event))
		})
	}
}

func TestWatcher_Relevant_SQLiteWAL(t *testing.T) {
	w := New("/tmp/scribe/settings.db", &countingRefresher{}, 0)

	assert.True(t, w.relevant(fsnotify.Event{Name: "/tmp/scribe/settings.db-wal", Op: fsnotify.Write}))
	assert.True(t, w.relevant(fsnotify.Event{Name: "/tmp/scribe/settings.db", Op: fsnotify.Write}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "/tmp/scribe/settings.db-shm", Op: fsnotify.Write}))
}

func TestNew_DefaultDebounce(t *testing.T) {
	w := New("settings.toml", &countingRefresher{}, -1)
	assert.Equal(t, DefaultDebounce, w.debounce)
}

func TestWatcher_Run_RefreshesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("a = 1\n"), 0o600))

	target := &countingRefresher{}
	w := New(path, target, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("a = 2\n"), 0o600))
	}

	assert.Eventually(t, func() bool { return target.calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_Run_MissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing", "settings.toml"), &countingRefresher{}, 0)
	assert.Error(t, w.Run(context.Background()))
}
