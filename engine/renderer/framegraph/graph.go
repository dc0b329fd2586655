package framegraph

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

type State int

const (
	StateIdle State = iota
	StateAcquiring
	StateDrawing
	StateSubmitting
	StatePresenting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiring:
		return "acquiring"
	case StateDrawing:
		return "drawing"
	case StateSubmitting:
		return "submitting"
	case StatePresenting:
		return "presenting"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Stats struct {
	// Frames submitted to the GPU.
	Frames uint64
	// Frames handed to the presentation engine.
	Presented uint64
	// Ticks that emitted no frame because the surface was stale.
	Dropped uint64
	// Resizes that rebuilt the instance tree.
	Resizes uint64
}

// FrameGraph drives a compiled instance tree once per tick: acquire, draw,
// submit and present. A graph without a surface only draws, rotating its
// own frames in flight.
//
// A FrameGraph is driven by a single goroutine. Graphs sharing a Context
// may run concurrently.
type FrameGraph struct {
	ctx     *Context
	node    *RenderNode
	root    *Instance
	surface *Surface

	state  State
	frame  Frame
	stats  Stats
	clock  *core.Clock
	metric *core.Metrics
	log    *log.Logger
}

// New compiles the graph under root. A present root needs surface; an
// offscreen root renders at resolution.
func New(ctx *Context, root *RenderNode, surface *Surface, resolution gfx.Extent) (*FrameGraph, error) {
	inst, err := Compile(ctx, root, surface, resolution)
	if err != nil {
		return nil, err
	}
	g := &FrameGraph{
		ctx:     ctx,
		node:    root,
		root:    inst,
		surface: surface,
		clock:   core.NewClock(),
		metric:  core.NewMetrics(),
		log:     core.LogWith("graph", root.name),
	}
	g.clock.Start()
	return g, nil
}

func (g *FrameGraph) Root() *Instance {
	return g.root
}

func (g *FrameGraph) Surface() *Surface {
	return g.surface
}

func (g *FrameGraph) State() State {
	return g.state
}

func (g *FrameGraph) Stats() Stats {
	return g.stats
}

func (g *FrameGraph) Metrics() *core.Metrics {
	return g.metric
}

func (g *FrameGraph) setState(s State) {
	g.state = s
}

// Execute renders one frame of scene. Stale surfaces are recreated and the
// frame dropped; a minimized window skips the tick. Returned errors wrapping
// core.ErrFatal leave the graph unusable, any other error only affects the
// current frame.
func (g *FrameGraph) Execute(ctx context.Context, scene Scene) error {
	if g.state != StateIdle {
		panic(fmt.Sprintf("frame graph %q: execute while %s", g.node.name, g.state))
	}
	defer g.setState(StateIdle)

	if g.surface == nil {
		return g.executeOffscreen(scene)
	}

	g.setState(StateAcquiring)
	if g.surface.window.FramebufferSize().IsZero() {
		return nil
	}
	frame, err := g.surface.Acquire(ctx, g.root)
	if errors.Is(err, core.ErrSurfaceStale) {
		g.stats.Dropped++
		g.log.Debug("surface stale on acquire, frame dropped")
		return g.recreate()
	}
	if err != nil {
		return err
	}

	g.setState(StateDrawing)
	if err := g.root.Record(frame, scene); err != nil {
		g.surface.Abandon()
		return err
	}
	g.setState(StateSubmitting)
	if err := g.root.Submit(frame); err != nil {
		g.surface.Abandon()
		return err
	}
	g.stats.Frames++

	g.setState(StatePresenting)
	err = g.surface.Present(g.root)
	if errors.Is(err, core.ErrSurfaceStale) {
		g.stats.Presented++
		g.tick()
		g.log.Debug("surface stale on present")
		return g.recreate()
	}
	if err != nil {
		return err
	}
	g.stats.Presented++
	g.tick()
	return nil
}

func (g *FrameGraph) executeOffscreen(scene Scene) error {
	g.setState(StateDrawing)
	frame := g.frame
	g.root.begin(frame)
	if err := g.root.Record(frame, scene); err != nil {
		return err
	}
	g.setState(StateSubmitting)
	if err := g.root.Submit(frame); err != nil {
		return err
	}
	g.stats.Frames++
	g.frame.InFlight = (g.frame.InFlight + 1) % uint32(g.root.Frames())
	g.frame.Image = g.frame.InFlight
	g.tick()
	return nil
}

func (g *FrameGraph) tick() {
	g.clock.Update()
	g.metric.Update(g.clock.Elapsed())
	g.clock.Start()
}

// recreate rebuilds the swapchain and resizes the tree to its new extent.
func (g *FrameGraph) recreate() error {
	if err := g.surface.CreateOrRecreate(); err != nil {
		return err
	}
	if g.surface.Minimized() {
		return nil
	}
	return g.Resize(g.surface.Extent())
}

// Resize drains the device and propagates extent through the instance
// tree. The shape of the tree is unchanged. A graph presenting to a surface
// renders at the surface extent: any other extent is rejected.
func (g *FrameGraph) Resize(extent gfx.Extent) error {
	if g.state != StateIdle && g.state != StateAcquiring && g.state != StatePresenting {
		panic(fmt.Sprintf("frame graph %q: resize while %s", g.node.name, g.state))
	}
	if g.surface != nil && extent != g.surface.Extent() {
		return fmt.Errorf("%w: resize of %q to %s, surface is %s", core.ErrInvalidGraph, g.node.name, extent, g.surface.Extent())
	}
	if err := g.ctx.Device.WaitIdle(); err != nil {
		return core.Fatal(err, "waiting for device idle before resize")
	}
	before := g.root.Generation()
	if err := g.root.Resize(extent); err != nil {
		return err
	}
	if g.root.Generation() != before {
		g.stats.Resizes++
		g.log.Info("resized", "extent", extent)
	}
	if g.surface == nil {
		g.frame = Frame{}
	}
	return nil
}

// Destroy releases the instance tree. The surface is owned by the caller.
func (g *FrameGraph) Destroy() {
	if g.root == nil {
		return
	}
	if err := g.ctx.Device.WaitIdle(); err != nil {
		g.log.Error("waiting for device idle", "err", err)
	}
	g.root.Destroy()
	g.root = nil
}
