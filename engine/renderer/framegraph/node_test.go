package framegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

func TestAttachRejectsPresentNode(t *testing.T) {
	present := NewPresentNode("present").AddResource(color("color", gfx.FormatUndefined))
	other := NewPresentNode("other").AddResource(color("color", gfx.FormatUndefined))
	offscreen := NewRenderNode("blur").AddResource(color("blur", gfx.FormatR8G8B8A8Unorm))

	assert.ErrorIs(t, offscreen.Attach(present), core.ErrInvalidGraph)
	assert.ErrorIs(t, other.Attach(present), core.ErrInvalidGraph)
	assert.ErrorIs(t, offscreen.Attach(nil), core.ErrInvalidGraph)
	assert.Empty(t, offscreen.Inputs())

	require.NoError(t, present.Attach(offscreen))
	assert.Len(t, present.Inputs(), 1)
}

func TestValidateDetectsCycles(t *testing.T) {
	a := NewRenderNode("a").AddResource(color("a", gfx.FormatR8G8B8A8Unorm))
	b := NewRenderNode("b").AddResource(color("b", gfx.FormatR8G8B8A8Unorm))
	require.NoError(t, a.Attach(b))
	require.NoError(t, b.Attach(a))

	err := Validate(a)
	assert.ErrorIs(t, err, core.ErrInvalidGraph)
	assert.Contains(t, err.Error(), "cycle")
}

func TestValidateAcceptsSharedInputs(t *testing.T) {
	shadow := NewRenderNode("shadow").AddResource(depth("shadow"))
	a := NewRenderNode("a").AddResource(color("a", gfx.FormatR8G8B8A8Unorm))
	b := NewRenderNode("b").AddResource(color("b", gfx.FormatR8G8B8A8Unorm))
	root := NewPresentNode("present").AddResource(color("color", gfx.FormatUndefined))

	require.NoError(t, a.Attach(shadow))
	require.NoError(t, b.Attach(shadow))
	require.NoError(t, root.Attach(a))
	require.NoError(t, root.Attach(b))

	assert.NoError(t, Validate(root))
}

func TestValidateRejectsNodesWithoutAttachments(t *testing.T) {
	root := NewPresentNode("present").AddResource(color("color", gfx.FormatUndefined))
	require.NoError(t, root.Attach(NewRenderNode("empty")))
	assert.ErrorIs(t, Validate(root), core.ErrInvalidGraph)
}

func TestNodeSignature(t *testing.T) {
	a := NewRenderNode("a").AddResource(color("x", gfx.FormatR8G8B8A8Unorm)).AddResource(depth("d"))
	b := NewRenderNode("b").AddResource(color("y", gfx.FormatR8G8B8A8Unorm)).AddResource(depth("e"))
	c := NewRenderNode("c").AddResource(color("x", gfx.FormatR16G16B16A16Sfloat))

	assert.Equal(t, a.Signature(), b.Signature(), "names are not part of the signature")
	assert.NotEqual(t, a.Signature(), c.Signature())
}

func TestScaleRemap(t *testing.T) {
	assert.Equal(t, gfx.Extent{Width: 960, Height: 540}, Scale(0.5)(fullHD))
	assert.Equal(t, gfx.Extent{Width: 1, Height: 1}, Scale(0.0001)(gfx.Extent{Width: 10, Height: 10}))
	assert.Equal(t, gfx.Extent{Width: gfx.MaxDimension, Height: gfx.MaxDimension}, Scale(1e9)(fullHD))
	assert.Equal(t, gfx.Extent{Width: 3840, Height: 2160}, Scale(2)(fullHD))
	assert.Equal(t, fullHD, Identity(fullHD))
}
