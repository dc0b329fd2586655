package renderer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx/gfxtest"
)

var fullHD = gfx.Extent{Width: 1920, Height: 1080}

type fakeBackend struct {
	*gfxtest.Device
	destroyed bool
}

func (b *fakeBackend) Destroy() {
	b.destroyed = true
}

type emptyScene struct{}

func (emptyScene) Camera() framegraph.Camera {
	return framegraph.Camera{}
}

func testGraph(t *testing.T, draws *int) *framegraph.RenderNode {
	t.Helper()
	scene := framegraph.NewRenderNode("scene").
		AddResource(framegraph.Attachment{Name: "color", Format: gfx.FormatR8G8B8A8Unorm, Clear: framegraph.ClearColor}).
		OnRender(func(rec framegraph.Recorder, s framegraph.Scene) { *draws++ })
	root := framegraph.NewPresentNode("out").
		AddResource(framegraph.Attachment{Name: "backbuffer", Clear: framegraph.ClearColor})
	require.NoError(t, root.Attach(scene))
	return root
}

func newRenderer(t *testing.T, extent gfx.Extent) (*Renderer, *fakeBackend, *gfxtest.Window) {
	t.Helper()
	backend := &fakeBackend{Device: gfxtest.NewDevice()}
	window := gfxtest.NewWindow(1, extent)
	r, err := New(backend, window, framegraph.Options{})
	require.NoError(t, err)
	return r, backend, window
}

func TestDrawFrame(t *testing.T) {
	r, backend, _ := newRenderer(t, fullHD)
	defer r.Shutdown()

	draws := 0
	require.NoError(t, r.SetGraph(testGraph(t, &draws)))
	for i := 0; i < 3; i++ {
		require.NoError(t, r.DrawFrame(context.Background(), emptyScene{}))
	}

	assert.Equal(t, 3, draws)
	assert.Len(t, backend.Presentations(), 3)
	assert.Equal(t, uint64(3), r.Stats().Presented)
	assert.NotNil(t, r.Metrics())
}

func TestDrawFrameWithoutGraph(t *testing.T) {
	r, _, _ := newRenderer(t, fullHD)
	defer r.Shutdown()

	err := r.DrawFrame(context.Background(), emptyScene{})
	assert.ErrorIs(t, err, core.ErrInvalidGraph)
	assert.Equal(t, framegraph.Stats{}, r.Stats())
	assert.Nil(t, r.Metrics())
}

func TestSetGraphNeedsPresentRoot(t *testing.T) {
	r, _, _ := newRenderer(t, fullHD)
	defer r.Shutdown()

	assert.ErrorIs(t, r.SetGraph(nil), core.ErrInvalidGraph)
	offscreen := framegraph.NewRenderNode("offscreen").
		AddResource(framegraph.Attachment{Name: "c", Format: gfx.FormatR8G8B8A8Unorm})
	assert.ErrorIs(t, r.SetGraph(offscreen), core.ErrInvalidGraph)
}

func TestStartMinimized(t *testing.T) {
	r, backend, window := newRenderer(t, gfx.Extent{})
	defer r.Shutdown()

	draws := 0
	require.NoError(t, r.SetGraph(testGraph(t, &draws)))
	require.NoError(t, r.DrawFrame(context.Background(), emptyScene{}))
	assert.Equal(t, 0, draws)
	assert.Equal(t, 0, backend.Count(gfxtest.OpCreateSwapchain))

	window.Resize(fullHD)
	require.NoError(t, r.DrawFrame(context.Background(), emptyScene{}))
	assert.Equal(t, 1, draws)
	assert.Equal(t, 1, backend.Count(gfxtest.OpCreateSwapchain))
	assert.Len(t, backend.Presentations(), 1)
}

func TestReconfigure(t *testing.T) {
	r, backend, _ := newRenderer(t, fullHD)
	defer r.Shutdown()

	draws := 0
	require.NoError(t, r.SetGraph(testGraph(t, &draws)))
	require.Equal(t, 1, backend.Count(gfxtest.OpCreateSwapchain))

	// Same options: only the graph is replaced.
	require.NoError(t, r.Reconfigure(framegraph.Options{}, testGraph(t, &draws)))
	assert.Equal(t, 1, backend.Count(gfxtest.OpCreateSwapchain))

	require.NoError(t, r.Reconfigure(framegraph.Options{PresentMode: gfx.PresentModeFifo}, testGraph(t, &draws)))
	assert.Equal(t, 2, backend.Count(gfxtest.OpCreateSwapchain))
	assert.Equal(t, 1, backend.Count(gfxtest.OpDestroySwapchain))

	require.NoError(t, r.DrawFrame(context.Background(), emptyScene{}))
	assert.Equal(t, 1, draws)
}

func TestShutdownDestroysBackend(t *testing.T) {
	r, backend, _ := newRenderer(t, fullHD)
	require.NoError(t, r.Shutdown())
	assert.True(t, backend.destroyed)
	// Twice is fine.
	require.NoError(t, r.Shutdown())
}
