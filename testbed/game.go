package testbed

import (
	stdmath "math"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/framegraph/engine"
	"github.com/spaghettifunk/framegraph/engine/config"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/math"
	"github.com/spaghettifunk/framegraph/engine/renderer/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	// Orbit of the camera around the origin.
	angle     float64
	speed     float64
	radius    float32
	elevation float32

	width  uint32
	height uint32

	scene *orbitScene
	// Passes recorded since start, by name.
	recorded map[string]uint64
	log      *log.Logger
}

// orbitScene is what the passes draw this tick.
type orbitScene struct {
	camera framegraph.Camera
	eye    math.Vec3
}

func (s *orbitScene) Camera() framegraph.Camera {
	return s.camera
}

func NewTestGame(app *engine.ApplicationConfig) *TestGame {
	if len(app.Graph) == 0 {
		app.Graph = DefaultGraph()
	}
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: app,
			State: &gameState{
				speed:     0.5,
				radius:    10,
				elevation: 4,
				width:     app.StartWidth,
				height:    app.StartHeight,
				scene:     &orbitScene{},
				recorded:  make(map[string]uint64),
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnPasses = tg.Passes
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize() error {
	core.LogDebug("TestGame Initialize fn....")
	state := g.state()
	state.log = core.LogWith("game", g.ApplicationConfig.Name)
	state.updateCamera()
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.state()
	state.angle = stdmath.Mod(state.angle+state.speed*deltaTime, 2*stdmath.Pi)
	state.updateCamera()
	return nil
}

func (g *TestGame) Render(deltaTime float64) (framegraph.Scene, error) {
	return g.state().scene, nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.state()
	state.width, state.height = width, height
	state.updateCamera()
	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.state()
	for name, n := range state.recorded {
		core.LogInfo("pass %q recorded %d times", name, n)
	}
	return nil
}

func (s *gameState) aspect() float32 {
	if s.width == 0 || s.height == 0 {
		return 1
	}
	return float32(s.width) / float32(s.height)
}

func (s *gameState) updateCamera() {
	s.scene.eye = math.NewVec3(
		s.radius*float32(stdmath.Cos(s.angle)),
		s.elevation,
		s.radius*float32(stdmath.Sin(s.angle)),
	)
	view := math.NewMat4LookAt(s.scene.eye, math.NewVec3(0, 0, 0), math.NewVec3(0, 1, 0))
	projection := math.NewMat4Perspective(math.DegToRad(45), s.aspect(), 0.1, 1000)
	s.scene.camera = framegraph.Camera{View: view.Data, Projection: projection.Data}
}

// Passes records every pass of the graph. Drawing geometry is up to the
// pipelines bound by a real game; the demo only restricts the scissor of
// the scene pass to the part of the target the camera looks at.
func (g *TestGame) Passes(graph config.GraphConfig) config.RenderFuncs {
	funcs := config.RenderFuncs{}
	for _, p := range graph {
		funcs[p.Name] = g.recordPass(p.Name)
	}
	return funcs
}

func (g *TestGame) recordPass(name string) framegraph.RenderFunc {
	return func(rec framegraph.Recorder, scene framegraph.Scene) {
		state := g.state()
		state.recorded[name]++
		if name == "scene" {
			rec.Device.CmdSetScissor(rec.Cmd, focusRect(rec.Resolution, scene.Camera()))
		}
		if state.log != nil {
			state.log.Debug("recorded", "pass", name, "frame", rec.Frame, "resolution", rec.Resolution)
		}
	}
}

// focusRect is the centered half of the target, shifted horizontally with
// the direction the camera faces.
func focusRect(res gfx.Extent, cam framegraph.Camera) gfx.Rect {
	w, h := res.Width/2, res.Height/2
	// View[2] is the negated X of the camera forward axis.
	shift := -float32(res.Width/4) * cam.View[2]
	x := int32(res.Width/4) + int32(shift)
	x = math.Clamp(x, 0, int32(res.Width-w))
	return gfx.Rect{X: x, Y: int32(res.Height / 4), Extent: gfx.Extent{Width: w, Height: h}}
}

// DefaultGraph is drawn when the configuration file describes no passes: a
// half resolution shadow map feeding the scene pass, composited onto the
// surface.
func DefaultGraph() config.GraphConfig {
	return config.GraphConfig{
		{
			Name:  "shadow",
			Scale: 0.5,
			Attachments: []config.AttachmentConfig{
				{Name: "depth", Format: gfx.FormatD32Sfloat, Clear: "depth_stencil"},
			},
		},
		{
			Name:   "scene",
			Inputs: []string{"shadow"},
			Attachments: []config.AttachmentConfig{
				{Name: "color", Format: gfx.FormatR16G16B16A16Sfloat, Clear: "color", ClearColor: [4]float32{0.05, 0.05, 0.1, 1}},
				{Name: "depth", Format: gfx.FormatD32Sfloat, Clear: "depth_stencil"},
			},
		},
		{
			Name:    "composite",
			Present: true,
			Inputs:  []string{"scene"},
			Attachments: []config.AttachmentConfig{
				{Name: "backbuffer", Clear: "color"},
			},
		},
	}
}
