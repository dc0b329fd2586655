package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

func TestLoad(t *testing.T) {
	cfg, err := Load("testdata/config.toml")
	require.NoError(t, err)

	assert.Equal(t, WindowConfig{Title: "testbed", X: 10, Y: 20, Width: 800, Height: 600}, cfg.Window)
	assert.Equal(t, 3, cfg.Renderer.FramesInFlight)
	assert.Equal(t, gfx.PresentModeFifo, cfg.Renderer.PresentMode)
	assert.True(t, cfg.Renderer.Validation)
	assert.Equal(t, core.DebugLevel, cfg.LogLevel())

	opts := cfg.Options()
	assert.Equal(t, 250*time.Millisecond, opts.AcquireTimeout)
	assert.Equal(t, 2*time.Second, opts.FenceTimeout)
	assert.Equal(t, 3, opts.FramesInFlight)

	require.Len(t, cfg.Passes, 3)
	scene := cfg.Passes[1]
	assert.Equal(t, "scene", scene.Name)
	assert.Equal(t, []string{"shadow"}, scene.Inputs)
	require.Len(t, scene.Attachments, 2)
	assert.Equal(t, gfx.FormatR16G16B16A16Sfloat, scene.Attachments[0].Format)
	assert.Equal(t, [4]float32{0.1, 0.1, 0.2, 1.0}, scene.Attachments[0].ClearColor)
	assert.Equal(t, float32(0.5), cfg.Passes[0].Scale)
	assert.True(t, cfg.Passes[2].Present)
	assert.Equal(t, gfx.FormatUndefined, cfg.Passes[2].Attachments[0].Format)
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`[window]
title = "only a title"
`))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, "only a title", cfg.Window.Title)
	assert.Equal(t, def.Window.Width, cfg.Window.Width)
	assert.Equal(t, def.Renderer, cfg.Renderer)
	assert.Equal(t, core.InfoLevel, cfg.LogLevel())
	assert.Empty(t, cfg.Passes)
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"unknown key", "[window]\ntitel = \"typo\"\n"},
		{"unknown section", "[audio]\nvolume = 3\n"},
		{"present mode", "[renderer]\npresent_mode = \"vsync\"\n"},
		{"duration", "[renderer]\nfence_timeout = \"soon\"\n"},
		{"zero timeout", "[renderer]\nacquire_timeout = \"0s\"\n"},
		{"frames in flight", "[renderer]\nframes_in_flight = 0\n"},
		{"zero size", "[window]\nwidth = 0\n"},
		{"log level", "[log]\nlevel = \"loud\"\n"},
		{"format", "[[pass]]\nname = \"a\"\npresent = true\n[[pass.attachment]]\nname = \"c\"\nformat = \"rgb565\"\n"},
		{"syntax", "[window\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/does-not-exist.toml")
	assert.Error(t, err)
}
