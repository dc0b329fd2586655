// Package renderer is the frontend between the engine loop and the frame
// graph: it owns the device, the presentation surface and the graph drawn
// every tick.
package renderer

import (
	"context"
	"errors"
	"fmt"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

type Renderer struct {
	backend RendererBackend
	window  gfx.Window
	opts    framegraph.Options

	context *framegraph.Context
	surface *framegraph.Surface
	graph   *framegraph.FrameGraph
	// Root of the graph to draw. Kept while the window is minimized and the
	// graph cannot be compiled.
	root *framegraph.RenderNode
}

func New(backend RendererBackend, window gfx.Window, opts framegraph.Options) (*Renderer, error) {
	r := &Renderer{backend: backend, window: window, opts: opts}
	if err := r.createSurface(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Renderer) createSurface() error {
	ctx, err := framegraph.NewContext(r.backend, r.opts)
	if err != nil {
		return err
	}
	surface, err := framegraph.NewSurface(ctx, r.window)
	if err != nil {
		ctx.Destroy()
		return err
	}
	r.context = ctx
	r.surface = surface
	return nil
}

func (r *Renderer) destroySurface() {
	r.destroyGraph()
	if r.surface != nil {
		r.surface.Destroy()
		r.surface = nil
	}
	if r.context != nil {
		r.context.Destroy()
		r.context = nil
	}
}

func (r *Renderer) destroyGraph() {
	if r.graph != nil {
		r.graph.Destroy()
		r.graph = nil
	}
}

// SetGraph replaces the graph drawn by DrawFrame. With a minimized window
// the graph is compiled once the window is restored.
func (r *Renderer) SetGraph(root *framegraph.RenderNode) error {
	if root == nil {
		return fmt.Errorf("%w: nil root", core.ErrInvalidGraph)
	}
	if !root.IsPresent() {
		return fmt.Errorf("%w: root %q does not present", core.ErrInvalidGraph, root.Name())
	}
	r.destroyGraph()
	r.root = root
	return r.build()
}

func (r *Renderer) build() error {
	if r.surface.Minimized() {
		if r.window.FramebufferSize().IsZero() {
			core.LogDebug("window minimized, graph %q compiled on restore", r.root.Name())
			return nil
		}
		if err := r.surface.CreateOrRecreate(); err != nil {
			return err
		}
	}
	graph, err := framegraph.New(r.context, r.root, r.surface, gfx.Extent{})
	if errors.Is(err, core.ErrSurfaceMinimized) {
		return nil
	}
	if err != nil {
		return err
	}
	r.graph = graph
	return nil
}

// Reconfigure applies new options and a new graph. The surface is rebuilt
// only when the options changed.
func (r *Renderer) Reconfigure(opts framegraph.Options, root *framegraph.RenderNode) error {
	if opts != r.opts {
		core.LogInfo("renderer options changed, recreating the surface")
		r.destroySurface()
		r.opts = opts
		if err := r.createSurface(); err != nil {
			return core.Fatal(err, "recreating the surface")
		}
	}
	return r.SetGraph(root)
}

// DrawFrame renders one frame of scene. Nothing is drawn while the window
// is minimized.
func (r *Renderer) DrawFrame(ctx context.Context, scene framegraph.Scene) error {
	if r.graph == nil {
		if r.root == nil {
			return fmt.Errorf("%w: no graph set", core.ErrInvalidGraph)
		}
		if r.window.FramebufferSize().IsZero() {
			return nil
		}
		if err := r.build(); err != nil {
			return err
		}
		if r.graph == nil {
			return nil
		}
	}
	return r.graph.Execute(ctx, scene)
}

// Stats is empty until a graph was compiled.
func (r *Renderer) Stats() framegraph.Stats {
	if r.graph == nil {
		return framegraph.Stats{}
	}
	return r.graph.Stats()
}

func (r *Renderer) Metrics() *core.Metrics {
	if r.graph == nil {
		return nil
	}
	return r.graph.Metrics()
}

func (r *Renderer) Shutdown() error {
	r.destroySurface()
	if r.backend != nil {
		r.backend.Destroy()
		r.backend = nil
	}
	return nil
}
