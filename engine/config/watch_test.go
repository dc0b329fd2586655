package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, path, title string) {
	t.Helper()
	doc := "[window]\ntitle = \"" + title + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "first")

	reloads := make(chan *Config, 8)
	w, err := Watch(path, func(cfg *Config) { reloads <- cfg })
	require.NoError(t, err)
	defer w.Close()

	// Other files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	// A broken version is skipped.
	require.NoError(t, os.WriteFile(path, []byte("[window\n"), 0o644))
	select {
	case cfg := <-reloads:
		t.Fatalf("unexpected reload %q", cfg.Window.Title)
	case <-time.After(4 * settleDelay):
	}

	writeConfig(t, path, "second")
	select {
	case cfg := <-reloads:
		assert.Equal(t, "second", cfg.Window.Title)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
}

func TestWatchCloseTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "x")

	w, err := Watch(path, func(*Config) {})
	require.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.Error(t, w.Close())
}
