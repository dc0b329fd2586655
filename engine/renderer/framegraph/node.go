package framegraph

import (
	"fmt"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

// RemapFunc derives the resolution of a pass from the target resolution.
type RemapFunc func(target gfx.Extent) gfx.Extent

// Identity renders at the target resolution.
func Identity(target gfx.Extent) gfx.Extent {
	return target
}

// Scale renders at a fraction (or multiple) of the target resolution.
func Scale(f float32) RemapFunc {
	return func(target gfx.Extent) gfx.Extent {
		return target.Scale(f)
	}
}

// RenderNode is the resolution independent description of a pass: its
// attachments and the nodes whose output it consumes.
type RenderNode struct {
	name        string
	attachments []Attachment
	inputs      []*RenderNode
	present     bool
	remap       RemapFunc
	render      RenderFunc
}

func NewRenderNode(name string) *RenderNode {
	return &RenderNode{name: name, remap: Identity}
}

// NewPresentNode creates the root of a graph drawing to a surface. Its one
// color attachment is the presentable image; an undefined format takes the
// surface format.
func NewPresentNode(name string) *RenderNode {
	return &RenderNode{name: name, present: true, remap: Identity}
}

func (n *RenderNode) Name() string {
	return n.name
}

func (n *RenderNode) SetName(name string) *RenderNode {
	n.name = name
	return n
}

func (n *RenderNode) IsPresent() bool {
	return n.present
}

// AddResource declares one more output of the pass.
func (n *RenderNode) AddResource(a Attachment) *RenderNode {
	n.attachments = append(n.attachments, a)
	return n
}

func (n *RenderNode) Attachments() []Attachment {
	return n.attachments
}

// Attach makes input a dependency of n: input is drawn first and n waits on
// its completion. Present nodes are always roots and cannot be attached.
func (n *RenderNode) Attach(input *RenderNode) error {
	if input == nil {
		return fmt.Errorf("%w: attaching a nil node to %q", core.ErrInvalidGraph, n.name)
	}
	if input.present {
		return fmt.Errorf("%w: present node %q cannot be an input of %q", core.ErrInvalidGraph, input.name, n.name)
	}
	n.inputs = append(n.inputs, input)
	return nil
}

func (n *RenderNode) Inputs() []*RenderNode {
	return n.inputs
}

// ResolutionRemap sets how the node derives its resolution from the
// target. It is ignored for present nodes, which always match the surface.
func (n *RenderNode) ResolutionRemap(fn RemapFunc) *RenderNode {
	if fn == nil {
		fn = Identity
	}
	n.remap = fn
	return n
}

// OnRender sets the callback carried onto the compiled instance.
func (n *RenderNode) OnRender(fn RenderFunc) *RenderNode {
	n.render = fn
	return n
}

// Signature hashes the attachment set. Nodes with equal signatures share a
// render pass.
func (n *RenderNode) Signature() string {
	return Signature(n.attachments, n.present)
}
