package testbed

import (
	stdmath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framegraph/engine"
	"github.com/spaghettifunk/framegraph/engine/math"
	"github.com/spaghettifunk/framegraph/engine/renderer/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx/gfxtest"
)

func newGame(t *testing.T) *TestGame {
	t.Helper()
	g := NewTestGame(&engine.ApplicationConfig{Name: "test", StartWidth: 1280, StartHeight: 720})
	require.NoError(t, g.FnInitialize())
	return g
}

func TestDefaultGraphBuilds(t *testing.T) {
	g := newGame(t)
	require.Len(t, g.ApplicationConfig.Graph, 3)

	root, err := g.ApplicationConfig.Graph.Build(g.Passes(g.ApplicationConfig.Graph))
	require.NoError(t, err)
	assert.Equal(t, "composite", root.Name())
	assert.Equal(t, "scene", root.Inputs()[0].Name())
	assert.Equal(t, "shadow", root.Inputs()[0].Inputs()[0].Name())
}

func TestCameraOrbits(t *testing.T) {
	g := newGame(t)
	state := g.state()
	start := state.scene.eye

	require.NoError(t, g.FnUpdate(1.0))
	moved := state.scene.eye
	assert.NotEqual(t, start, moved)

	for _, eye := range []math.Vec3{start, moved} {
		flat := math.NewVec3(eye.X, 0, eye.Z)
		assert.InDelta(t, 10, flat.Length(), 1e-4)
		assert.Equal(t, float32(4), eye.Y)
	}

	// A full turn brings the camera back.
	require.NoError(t, g.FnUpdate(2*stdmath.Pi/state.speed-1.0))
	assert.InDelta(t, start.X, state.scene.eye.X, 1e-3)
	assert.InDelta(t, start.Z, state.scene.eye.Z, 1e-3)
}

func TestResizeUpdatesProjection(t *testing.T) {
	g := newGame(t)
	before := g.state().scene.Camera().Projection

	require.NoError(t, g.FnOnResize(600, 600))
	after := g.state().scene.Camera().Projection
	assert.NotEqual(t, before[0], after[0])
	assert.Equal(t, before[5], after[5], "vertical field of view is kept")

	// Minimized: the aspect falls back to 1 instead of dividing by zero.
	require.NoError(t, g.FnOnResize(0, 0))
	assert.Equal(t, after, g.state().scene.Camera().Projection)
}

func TestRenderReturnsTheScene(t *testing.T) {
	g := newGame(t)
	scene, err := g.FnRender(0)
	require.NoError(t, err)
	assert.Equal(t, g.state().scene.Camera(), scene.Camera())
}

func TestPassesRecord(t *testing.T) {
	g := newGame(t)
	funcs := g.Passes(g.ApplicationConfig.Graph)
	require.Len(t, funcs, 3)

	dev := gfxtest.NewDevice()
	cb, err := dev.CreateCommandBuffer(gfx.QueueGraphics)
	require.NoError(t, err)
	scene, _ := g.FnRender(0)
	rec := framegraph.Recorder{Device: dev, Cmd: cb, Resolution: gfx.Extent{Width: 1280, Height: 720}}

	funcs["shadow"](rec, scene)
	funcs["scene"](rec, scene)
	funcs["scene"](rec, scene)

	assert.Equal(t, uint64(1), g.state().recorded["shadow"])
	assert.Equal(t, uint64(2), g.state().recorded["scene"])
	assert.Equal(t, 2, dev.Count(gfxtest.OpSetScissor))
	require.NoError(t, g.FnShutdown())
}

func TestFocusRectStaysInside(t *testing.T) {
	res := gfx.Extent{Width: 1000, Height: 500}
	for _, x := range []float32{-1, -0.5, 0, 0.5, 1} {
		var cam framegraph.Camera
		cam.View[2] = x
		r := focusRect(res, cam)
		assert.GreaterOrEqual(t, r.X, int32(0))
		assert.LessOrEqual(t, r.X+int32(r.Extent.Width), int32(res.Width))
		assert.Equal(t, gfx.Extent{Width: 500, Height: 250}, r.Extent)
		assert.Equal(t, int32(125), r.Y)
	}
}
