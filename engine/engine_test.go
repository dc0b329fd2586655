package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framegraph/engine/config"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer"
	"github.com/spaghettifunk/framegraph/engine/renderer/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx/gfxtest"
)

var fullHD = gfx.Extent{Width: 1920, Height: 1080}

type fakeBackend struct {
	*gfxtest.Device
}

func (fakeBackend) Destroy() {}

type emptyScene struct{}

func (emptyScene) Camera() framegraph.Camera {
	return framegraph.Camera{}
}

type testGame struct {
	draws   int
	updates int
	resized []gfx.Extent
}

func testGraph() config.GraphConfig {
	return config.GraphConfig{
		{Name: "scene", Attachments: []config.AttachmentConfig{
			{Name: "color", Format: gfx.FormatR8G8B8A8Unorm, Clear: "color"},
		}},
		{Name: "out", Present: true, Inputs: []string{"scene"}, Attachments: []config.AttachmentConfig{
			{Name: "backbuffer", Clear: "color"},
		}},
	}
}

type harness struct {
	engine *Engine
	game   *testGame
	dev    *gfxtest.Device
	window *gfxtest.Window
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tg := &testGame{}
	def := config.Default()
	game := &Game{
		ApplicationConfig: &ApplicationConfig{
			StartWidth:  fullHD.Width,
			StartHeight: fullHD.Height,
			Renderer:    def.Options(),
			Graph:       testGraph(),
		},
		FnUpdate: func(float64) error {
			tg.updates++
			return nil
		},
		FnRender: func(float64) (framegraph.Scene, error) {
			return emptyScene{}, nil
		},
		FnOnResize: func(w, h uint32) error {
			tg.resized = append(tg.resized, gfx.Extent{Width: w, Height: h})
			return nil
		},
		FnPasses: func(config.GraphConfig) config.RenderFuncs {
			return config.RenderFuncs{
				"scene": func(rec framegraph.Recorder, s framegraph.Scene) { tg.draws++ },
			}
		},
	}
	e, err := New(game)
	require.NoError(t, err)
	e.registerEvents()

	dev := gfxtest.NewDevice()
	window := gfxtest.NewWindow(1, fullHD)
	r, err := renderer.New(fakeBackend{dev}, window, game.ApplicationConfig.Renderer)
	require.NoError(t, err)
	e.renderer = r
	t.Cleanup(func() { r.Shutdown() })

	root, err := e.buildGraph(game.ApplicationConfig.Graph)
	require.NoError(t, err)
	require.NoError(t, r.SetGraph(root))
	e.clock.Start()

	return &harness{engine: e, game: tg, dev: dev, window: window}
}

func TestNewNeedsConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
	_, err = New(&Game{})
	assert.Error(t, err)
	_, err = New(&Game{ApplicationConfig: &ApplicationConfig{}})
	assert.Error(t, err, "render function is required")
}

func TestFrameDraws(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, h.engine.frame(context.Background()))
	}
	assert.Equal(t, 3, h.game.updates)
	assert.Equal(t, 3, h.game.draws)
	assert.Equal(t, uint64(3), h.engine.Stats().Presented)
}

func TestMinimizeSuspends(t *testing.T) {
	h := newHarness(t)
	e := h.engine
	require.NoError(t, e.frame(context.Background()))

	h.window.Resize(gfx.Extent{})
	e.events.Fire(core.EVENT_CODE_RESIZED, h, core.EventContext{})
	assert.True(t, e.isSuspended)

	require.NoError(t, e.frame(context.Background()))
	assert.Equal(t, 1, h.game.updates, "no update while suspended")
	assert.Equal(t, 1, h.game.draws)

	restored := gfx.Extent{Width: 800, Height: 600}
	h.window.Resize(restored)
	h.dev.SetSurfaceExtent(restored)
	e.events.Fire(core.EVENT_CODE_RESIZED, h, core.EventContext{U32: [4]uint32{800, 600}})
	assert.False(t, e.isSuspended)
	assert.Equal(t, []gfx.Extent{restored}, h.game.resized)
	w, ht := e.GetFramebufferSize()
	assert.Equal(t, restored, gfx.Extent{Width: w, Height: ht})

	// The first tick after the restore rebuilds the chain.
	for i := 0; i < 2; i++ {
		require.NoError(t, e.frame(context.Background()))
	}
	assert.Greater(t, h.game.draws, 1)
	assert.Equal(t, uint64(1), e.Stats().Resizes)
}

func TestQuitStopsTheLoop(t *testing.T) {
	h := newHarness(t)
	h.engine.events.Fire(core.EVENT_CODE_APPLICATION_QUIT, h, core.EventContext{})
	assert.False(t, h.engine.isRunning)

	require.NoError(t, h.engine.frame(context.Background()))
	assert.Equal(t, 0, h.game.draws)
}

func TestCanceledContextStopsTheLoop(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.engine.frame(ctx))
	assert.False(t, h.engine.isRunning)
	assert.Equal(t, 0, h.game.draws)
}

func TestFatalFrameStopsTheLoop(t *testing.T) {
	h := newHarness(t)
	h.dev.FailNext(gfxtest.OpAcquire, core.ErrDeviceLost)

	err := h.engine.frame(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsFatal(err))
	assert.ErrorIs(t, err, core.ErrDeviceLost)
	assert.False(t, h.engine.isRunning)
}

func TestConfigReload(t *testing.T) {
	h := newHarness(t)
	e := h.engine
	require.NoError(t, e.frame(context.Background()))

	cfg := config.Default()
	cfg.Passes = testGraph()
	cfg.Passes[0].Scale = 0.5
	e.queueReload(&cfg)

	require.NoError(t, e.frame(context.Background()))
	assert.Equal(t, 2, h.game.draws)
	assert.Equal(t, float32(0.5), e.gameInstance.ApplicationConfig.Graph[0].Scale)
	// Unchanged options keep the swapchain.
	assert.Equal(t, 1, h.dev.Count(gfxtest.OpCreateSwapchain))
}

func TestConfigReloadWithoutPassesKeepsGraph(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	cfg := config.Default()
	cfg.Renderer.PresentMode = gfx.PresentModeFifo
	e.queueReload(&cfg)

	require.NoError(t, e.frame(context.Background()))
	assert.Equal(t, 1, h.game.draws)
	assert.Equal(t, 2, h.dev.Count(gfxtest.OpCreateSwapchain))
	assert.Equal(t, gfx.PresentModeFifo, e.gameInstance.ApplicationConfig.Renderer.PresentMode)
	assert.Len(t, e.gameInstance.ApplicationConfig.Graph, 2)
}

func TestConfigReloadRejectsBrokenGraph(t *testing.T) {
	h := newHarness(t)
	e := h.engine

	cfg := config.Default()
	cfg.Passes = config.GraphConfig{{Name: "lonely", Attachments: []config.AttachmentConfig{{Name: "c", Format: gfx.FormatR8G8B8A8Unorm}}}}
	e.events.Fire(core.EVENT_CODE_CONFIG_RELOADED, h, core.EventContext{Payload: &cfg})

	assert.Equal(t, "scene", e.gameInstance.ApplicationConfig.Graph[0].Name)
	require.NoError(t, e.frame(context.Background()))
	assert.Equal(t, 1, h.game.draws)
}

func TestQueueReloadKeepsLatest(t *testing.T) {
	h := newHarness(t)
	a, b := config.Default(), config.Default()
	b.Window.Title = "newer"

	h.engine.queueReload(&a)
	h.engine.queueReload(&b)

	got := <-h.engine.reloads
	assert.Equal(t, "newer", got.Window.Title)
	assert.Empty(t, h.engine.reloads)
}
