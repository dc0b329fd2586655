package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

func color(name string) AttachmentConfig {
	return AttachmentConfig{Name: name, Format: gfx.FormatR8G8B8A8Unorm, Clear: "color"}
}

func TestBuild(t *testing.T) {
	cfg, err := Load("testdata/config.toml")
	require.NoError(t, err)

	root, err := cfg.Passes.Build(RenderFuncs{
		"scene": func(rec framegraph.Recorder, scene framegraph.Scene) {},
	})
	require.NoError(t, err)

	assert.Equal(t, "composite", root.Name())
	assert.True(t, root.IsPresent())
	require.Len(t, root.Inputs(), 1)

	scene := root.Inputs()[0]
	assert.Equal(t, "scene", scene.Name())
	assert.False(t, scene.IsPresent())
	require.Len(t, scene.Attachments(), 2)
	assert.Equal(t, framegraph.ClearColor, scene.Attachments()[0].Clear)
	assert.Equal(t, [4]float32{0.1, 0.1, 0.2, 1.0}, scene.Attachments()[0].Value.Color)
	assert.True(t, scene.Attachments()[1].IsDepth())

	require.Len(t, scene.Inputs(), 1)
	shadow := scene.Inputs()[0]
	assert.Equal(t, "shadow", shadow.Name())
	assert.Equal(t, framegraph.ClearDepthStencil, shadow.Attachments()[0].Clear)
}

func TestBuildSharedInput(t *testing.T) {
	g := GraphConfig{
		{Name: "gbuffer", Attachments: []AttachmentConfig{color("albedo")}},
		{Name: "ssao", Inputs: []string{"gbuffer"}, Scale: 0.5, Attachments: []AttachmentConfig{color("ao")}},
		{Name: "light", Inputs: []string{"gbuffer", "ssao"}, Attachments: []AttachmentConfig{color("hdr")}},
		{Name: "out", Present: true, Inputs: []string{"light"}, Attachments: []AttachmentConfig{{Name: "bb"}}},
	}
	root, err := g.Build(nil)
	require.NoError(t, err)

	light := root.Inputs()[0]
	require.Len(t, light.Inputs(), 2)
	ssao := light.Inputs()[1]
	assert.Same(t, light.Inputs()[0], ssao.Inputs()[0])
}

func TestBuildUnreachablePassIsSkipped(t *testing.T) {
	g := GraphConfig{
		{Name: "orphan", Attachments: []AttachmentConfig{color("c")}},
		{Name: "out", Present: true, Attachments: []AttachmentConfig{{Name: "bb"}}},
	}
	root, err := g.Build(nil)
	require.NoError(t, err)
	assert.Empty(t, root.Inputs())
}

func TestBuildRejects(t *testing.T) {
	out := func(inputs ...string) PassConfig {
		return PassConfig{Name: "out", Present: true, Inputs: inputs, Attachments: []AttachmentConfig{{Name: "bb"}}}
	}
	cases := []struct {
		name  string
		graph GraphConfig
	}{
		{"empty", GraphConfig{}},
		{"no present", GraphConfig{{Name: "a", Attachments: []AttachmentConfig{color("c")}}}},
		{"two presents", GraphConfig{out(), {Name: "out2", Present: true, Attachments: []AttachmentConfig{{Name: "bb"}}}}},
		{"unknown input", GraphConfig{out("missing")}},
		{"duplicate", GraphConfig{out(), {Name: "out", Attachments: []AttachmentConfig{color("c")}}}},
		{"unnamed", GraphConfig{out(), {Attachments: []AttachmentConfig{color("c")}}}},
		{"present as input", GraphConfig{
			out(),
			{Name: "a", Inputs: []string{"out"}, Attachments: []AttachmentConfig{color("c")}},
		}},
		{"cycle", GraphConfig{
			out("a"),
			{Name: "a", Inputs: []string{"b"}, Attachments: []AttachmentConfig{color("c")}},
			{Name: "b", Inputs: []string{"a"}, Attachments: []AttachmentConfig{color("c")}},
		}},
		{"clear policy", GraphConfig{
			{Name: "out", Present: true, Attachments: []AttachmentConfig{{Name: "bb", Clear: "sometimes"}}},
		}},
		{"no attachments", GraphConfig{out("a"), {Name: "a"}}},
		{"negative scale", GraphConfig{out("a"), {Name: "a", Scale: -1, Attachments: []AttachmentConfig{color("c")}}}},
		{"scale too large", GraphConfig{out("a"), {Name: "a", Scale: 1e9, Attachments: []AttachmentConfig{color("c")}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.graph.Build(nil)
			assert.ErrorIs(t, err, core.ErrInvalidGraph)
		})
	}
}
