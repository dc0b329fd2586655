package framegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx/gfxtest"
)

func TestPassCacheDeduplicatesBySignature(t *testing.T) {
	dev := gfxtest.NewDevice()
	cache := NewPassCache(dev, core.NewIDPool(4))

	attachments := []Attachment{color("albedo", gfx.FormatR8G8B8A8Unorm), depth("depth")}
	a, err := cache.Get("gbuffer", attachments, false)
	require.NoError(t, err)
	b, err := cache.Get("other", attachments, false)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 1, dev.Count(gfxtest.OpCreateRenderPass))
	assert.Equal(t, 1, cache.Len())

	c, err := cache.Get("hdr", []Attachment{color("hdr", gfx.FormatR16G16B16A16Sfloat)}, false)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), c.ID())
	assert.Equal(t, 2, cache.Len())

	cache.Release(a)
	assert.Equal(t, 2, cache.Len(), "still referenced")
	cache.Release(b)
	assert.Equal(t, 1, cache.Len())
}

func TestPassAttachmentOrderAndClearValues(t *testing.T) {
	dev := gfxtest.NewDevice()
	cache := NewPassCache(dev, core.NewIDPool(4))

	// Depth declared first still ends up last.
	p, err := cache.Get("lit", []Attachment{
		depth("depth"),
		color("color", gfx.FormatR8G8B8A8Unorm),
		{Name: "normals", Format: gfx.FormatR16G16B16A16Sfloat, Clear: ClearDontCare},
	}, false)
	require.NoError(t, err)

	names := []string{}
	for _, a := range p.Attachments() {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"color", "normals", "depth"}, names)

	clear := p.ClearValues()
	require.Len(t, clear, 3)
	assert.Equal(t, [4]float32{0, 0, 0, 1}, clear[0].Color)
	assert.Equal(t, float32(1.0), clear[2].Depth)

	desc := dev.RenderPassDesc(p.Handle())
	require.Len(t, desc.Colors, 2)
	assert.Equal(t, gfx.LoadOpClear, desc.Colors[0].Load)
	assert.Equal(t, gfx.LoadOpDontCare, desc.Colors[1].Load)
	require.NotNil(t, desc.Depth)
	assert.Equal(t, gfx.FormatD32Sfloat, desc.Depth.Format)
}

func TestPassCacheRejectsInvalidAttachmentSets(t *testing.T) {
	dev := gfxtest.NewDevice()
	cache := NewPassCache(dev, core.NewIDPool(4))

	tests := []struct {
		name        string
		attachments []Attachment
		present     bool
	}{
		{"two depth", []Attachment{depth("a"), depth("b")}, false},
		{"depth clear on color", []Attachment{{Name: "c", Format: gfx.FormatR8G8B8A8Unorm, Clear: ClearDepthStencil}}, false},
		{"color clear on depth", []Attachment{{Name: "d", Format: gfx.FormatD32Sfloat, Clear: ClearColor}}, false},
		{"undefined format", []Attachment{{Name: "u"}}, false},
		{"empty", nil, false},
		{"present without color", []Attachment{depth("d")}, true},
		{"present with two colors", []Attachment{
			color("a", gfx.FormatB8G8R8A8Unorm),
			color("b", gfx.FormatB8G8R8A8Unorm),
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cache.Get(tt.name, tt.attachments, tt.present)
			assert.ErrorIs(t, err, core.ErrInvalidGraph)
		})
	}
	assert.Equal(t, 0, dev.Count(gfxtest.OpCreateRenderPass))
}

func TestParseClearPolicy(t *testing.T) {
	p, err := ParseClearPolicy("depth")
	require.NoError(t, err)
	assert.Equal(t, ClearDepthStencil, p)

	p, err = ParseClearPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ClearDontCare, p)

	_, err = ParseClearPolicy("sometimes")
	assert.Error(t, err)
}
