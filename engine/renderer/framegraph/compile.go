package framegraph

import (
	"fmt"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

// Validate checks the graph under root: root may be a present node, no other
// node may be, and the inputs must not form a cycle.
func Validate(root *RenderNode) error {
	visiting := make(map[*RenderNode]bool)
	done := make(map[*RenderNode]bool)

	var visit func(n *RenderNode, path []string) error
	visit = func(n *RenderNode, path []string) error {
		path = append(path, n.name)
		if visiting[n] {
			return fmt.Errorf("%w: cycle %v", core.ErrInvalidGraph, path)
		}
		if done[n] {
			return nil
		}
		if n.present && n != root {
			return fmt.Errorf("%w: present node %q used as an input", core.ErrInvalidGraph, n.name)
		}
		if len(n.attachments) == 0 {
			return fmt.Errorf("%w: node %q declares no attachments", core.ErrInvalidGraph, n.name)
		}
		visiting[n] = true
		for _, in := range n.inputs {
			if err := visit(in, path); err != nil {
				return err
			}
		}
		visiting[n] = false
		done[n] = true
		return nil
	}
	return visit(root, nil)
}

// Compile turns the graph under root into a tree of instances. A present
// root is bound to surface at the surface extent; any other root renders
// offscreen at resolution. Each input renders at its remap of the target
// resolution. A node reachable through several parents is instantiated once
// per parent.
func Compile(ctx *Context, root *RenderNode, surface *Surface, resolution gfx.Extent) (*Instance, error) {
	if err := Validate(root); err != nil {
		return nil, err
	}

	target := Target{Frames: ctx.framesInFlight()}
	if root.present {
		if surface == nil {
			return nil, fmt.Errorf("%w: present node %q needs a surface", core.ErrInvalidGraph, root.name)
		}
		if surface.Minimized() {
			return nil, core.ErrSurfaceMinimized
		}
		resolution = surface.Extent()
		target = Target{Surface: surface, Frames: surface.ImageCount()}
	}

	inst, err := compileNode(ctx, root, target, resolution)
	if err != nil {
		return nil, err
	}
	core.LogDebug("render graph %q compiled at %s", root.name, resolution)
	return inst, nil
}

func compileNode(ctx *Context, n *RenderNode, target Target, resolution gfx.Extent) (*Instance, error) {
	attachments := n.attachments
	if n.present {
		attachments = presentAttachments(n, target.Surface.Format().Format)
	}
	pass, err := ctx.Passes.Get(n.name, attachments, n.present)
	if err != nil {
		return nil, err
	}

	size := resolution
	if !n.present {
		size = n.remap(resolution)
	}
	inst, err := pass.Instantiate(ctx, target, size)
	if err != nil {
		return nil, err
	}
	if !n.present {
		inst.SetRemap(n.remap)
	}
	inst.OnRender(n.render)

	inputs := Target{Frames: inst.Frames()}
	for _, in := range n.inputs {
		child, err := compileNode(ctx, in, inputs, resolution)
		if err != nil {
			inst.Destroy()
			return nil, err
		}
		inst.Attach(child)
	}
	return inst, nil
}

// presentAttachments binds the color attachment of a present node to the
// surface format.
func presentAttachments(n *RenderNode, format gfx.Format) []Attachment {
	out := make([]Attachment, len(n.attachments))
	copy(out, n.attachments)
	for i := range out {
		if out[i].IsDepth() {
			continue
		}
		if out[i].Format != gfx.FormatUndefined && out[i].Format != format {
			core.LogWarn("present node %q: attachment %q format %s replaced by the surface format %s", n.name, out[i].Name, out[i].Format, format)
		}
		out[i].Format = format
	}
	return out
}
