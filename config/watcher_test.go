package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linchenxuan/tyto/event"
)

// watchFixture wires a watcher to a publisher and funnels reloads into a
// channel the test can wait on.
func watchFixture(t *testing.T, initial string) (string, chan *TytoCfg, *Watcher) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tyto.yaml")
	require.NoError(t, os.WriteFile(path, []byte(initial), 0o644))

	pub := event.NewPublisher()
	require.NoError(t, pub.NewTopic(event.ReloadConfig, 0))

	reloads := make(chan *TytoCfg, 4)
	require.NoError(t, pub.RegisterSubscriber(event.ReloadConfig, func(param any) {
		if cfg, ok := param.(*TytoCfg); ok {
			reloads <- cfg
		}
	}))

	w, err := NewWatcher(path, pub, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	w.StartAsync()
	t.Cleanup(func() { _ = w.Stop() })

	// Give the watch loop a beat to come up before the test writes.
	time.Sleep(50 * time.Millisecond)
	return path, reloads, w
}

func waitReload(t *testing.T, reloads chan *TytoCfg) *TytoCfg {
	t.Helper()
	select {
	case cfg := <-reloads:
		return cfg
	case <-time.After(3 * time.Second):
		t.Fatal("no reload arrived")
		return nil
	}
}

// waitReloadLevel consumes reloads until one carries the wanted level. A
// single save can debounce into more than one publish, so exact counts are
// not asserted anywhere.
func waitReloadLevel(t *testing.T, reloads chan *TytoCfg, want string) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case cfg := <-reloads:
			if cfg.Log.Level == want {
				return
			}
		case <-deadline:
			t.Fatalf("no reload with level %q arrived", want)
		}
	}
}

func TestWatcherPublishesOnChange(t *testing.T) {
	path, reloads, _ := watchFixture(t, "log:\n  level: info\n")

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	cfg := waitReload(t, reloads)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestWatcherSurvivesAtomicSave(t *testing.T) {
	path, reloads, _ := watchFixture(t, "log:\n  level: info\n")

	// Editors write a temp file and rename it over the original.
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte("log:\n  level: warn\n"), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	waitReloadLevel(t, reloads, "warn")

	// The watch survives the inode swap; a plain write still reloads.
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0o644))
	waitReloadLevel(t, reloads, "error")
}

func TestWatcherRejectsBrokenConfig(t *testing.T) {
	path, reloads, _ := watchFixture(t, "log:\n  level: info\n")

	require.NoError(t, os.WriteFile(path, []byte("log: [broken"), 0o644))

	select {
	case cfg := <-reloads:
		t.Fatalf("broken config was published: %+v", cfg)
	case <-time.After(300 * time.Millisecond):
	}

	// A later good save still goes through.
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))
	cfg := waitReload(t, reloads)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	path, reloads, _ := watchFixture(t, "log:\n  level: info\n")

	sibling := filepath.Join(filepath.Dir(path), "other.yaml")
	require.NoError(t, os.WriteFile(sibling, []byte("log:\n  level: debug\n"), 0o644))

	select {
	case <-reloads:
		t.Fatal("sibling file change triggered a reload")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherStop(t *testing.T) {
	path, reloads, w := watchFixture(t, "log:\n  level: info\n")

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop(), "stop must be idempotent")

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))
	select {
	case <-reloads:
		t.Fatal("reload published after Stop")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestNewWatcherErrors(t *testing.T) {
	pub := event.NewPublisher()

	_, err := NewWatcher("", pub)
	assert.Error(t, err)

	_, err = NewWatcher("/tmp/whatever.yaml", nil)
	assert.Error(t, err)

	_, err = NewWatcher(filepath.Join(t.TempDir(), "missing-dir", "cfg.yaml"), pub)
	assert.Error(t, err, "watching a nonexistent directory must fail")
}
