package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projection-engine/projection"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, 200*time.Millisecond, cfg.Watch.Debounce)
	require.Len(t, cfg.Projectors, 1)
	p := cfg.Projectors[0]
	assert.Equal(t, "main", p.Name)
	assert.Nil(t, p.Lens)
	assert.Equal(t, projection.DefaultLens(), p.LensOrDefault())

	lvl, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
}

func TestLoadOverlaysUserFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
window:
  width: 640
log:
  level: debug
projectors:
  - name: east
    position: [10, 20, 30]
    horizontal_fov: 90
    vertical_fov: 45
    near: 2
    far: 300
    lens:
      x_min: 0.1
      x_max: 0.9
      y_min: 0
      y_max: 1
      x_a: 1
      y_a: 1
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 640, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height, "defaults survive")
	lvl, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	require.Len(t, cfg.Projectors, 1)
	p, ok := cfg.Projector("east")
	require.True(t, ok)
	opts := p.Options()
	assert.Equal(t, mgl64.Vec3{10, 20, 30}, opts.Position)
	assert.Equal(t, 90.0, opts.HorizontalFov)
	require.NotNil(t, opts.Lens)
	assert.Equal(t, 0.1, opts.Lens.XMin)
	assert.Equal(t, 1.0, opts.Lens.XA)
	assert.NoError(t, opts.Validate())

	_, ok = cfg.Projector("main")
	assert.False(t, ok)
}

func TestLoadRejectsInvalidProjector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
projectors:
  - name: a
    horizontal_fov: 200
    vertical_fov: 45
    near: 1
    far: 10
  - name: a
    horizontal_fov: 60
    vertical_fov: 45
    near: 1
    far: 10
`)
	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *projection.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "horizontal fov", cfgErr.Field)
	assert.Contains(t, err.Error(), "duplicate name")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "window: [")
	_, err = Load(path)
	assert.Error(t, err)

	writeFile(t, path, "log:\n  level: loud\n")
	_, err = Load(path)
	assert.Error(t, err)
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Projectors[0].Lens = &LensConfig{XMax: 1, YMax: 1, XA: 0.5, YA: 0.5}

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.WriteYAML(path))
	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestInit(t *testing.T) {
	t.Cleanup(func() { global = nil })
	assert.Panics(t, func() { Cfg() })
	require.NoError(t, Init(""))
	assert.Equal(t, "main", Cfg().Projectors[0].Name)
	assert.Panics(t, func() { MustInit("/nonexistent/config.yaml") })
}

func TestWatcherDeliversReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "window:\n  width: 800\n")

	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Invalid content is skipped.
	writeFile(t, path, "window: [")
	writeFile(t, path, "window:\n  width: 1024\n")

	// A truncated file may be seen mid-write; wait for the final content.
	timeout := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-w.Updates():
			if cfg.Window.Width == 1024 {
				return
			}
		case <-timeout:
			t.Fatal("no reload delivered")
		}
	}
}
