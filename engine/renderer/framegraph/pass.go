package framegraph

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

type ClearPolicy int

const (
	ClearDontCare ClearPolicy = iota
	ClearColor
	ClearDepthStencil
)

func (c ClearPolicy) String() string {
	switch c {
	case ClearDontCare:
		return "dont_care"
	case ClearColor:
		return "color"
	case ClearDepthStencil:
		return "depth_stencil"
	}
	return fmt.Sprintf("clear(%d)", int(c))
}

func ParseClearPolicy(s string) (ClearPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dont_care", "none":
		return ClearDontCare, nil
	case "color":
		return ClearColor, nil
	case "depth", "depth_stencil":
		return ClearDepthStencil, nil
	}
	return ClearDontCare, fmt.Errorf("unknown clear policy %q", s)
}

// Attachment declares one output of a pass. A depth format makes it the
// depth attachment, any other format a color attachment.
type Attachment struct {
	Name   string
	Format gfx.Format
	Clear  ClearPolicy
	// Value cleared to when Clear is ClearColor or ClearDepthStencil.
	// A zero depth clear is replaced by 1.0.
	Value gfx.ClearValue
}

func (a Attachment) IsDepth() bool {
	return a.Format.IsDepth()
}

func (a Attachment) clearValue() gfx.ClearValue {
	v := a.Value
	if a.Clear == ClearDepthStencil && v.Depth == 0 {
		v.Depth = 1.0
	}
	return v
}

func (a Attachment) validate() error {
	if a.Format == gfx.FormatUndefined {
		return fmt.Errorf("attachment %q: undefined format", a.Name)
	}
	switch {
	case a.IsDepth() && a.Clear == ClearColor:
		return fmt.Errorf("attachment %q: color clear on depth format %s", a.Name, a.Format)
	case !a.IsDepth() && a.Clear == ClearDepthStencil:
		return fmt.Errorf("attachment %q: depth clear on color format %s", a.Name, a.Format)
	}
	return nil
}

func (a Attachment) signature() string {
	return fmt.Sprintf("%s:%s", a.Format, a.Clear)
}

// splitAttachments orders the attachments colors first, then depth.
func splitAttachments(attachments []Attachment) ([]Attachment, *Attachment, error) {
	var (
		colors []Attachment
		depth  *Attachment
	)
	for i := range attachments {
		a := attachments[i]
		if err := a.validate(); err != nil {
			return nil, nil, fmt.Errorf("%w: %s", core.ErrInvalidGraph, err)
		}
		if !a.IsDepth() {
			colors = append(colors, a)
			continue
		}
		if depth != nil {
			return nil, nil, fmt.Errorf("%w: second depth attachment %q", core.ErrInvalidGraph, a.Name)
		}
		depth = &a
	}
	return colors, depth, nil
}

// Signature identifies an attachment set. Passes with equal signatures are
// compatible and share one backend render pass.
func Signature(attachments []Attachment, present bool) string {
	parts := make([]string, 0, len(attachments)+1)
	for _, a := range attachments {
		parts = append(parts, a.signature())
	}
	if present {
		parts = append(parts, "present")
	}
	return strings.Join(parts, "|")
}

type PassID uint32

// RenderPass is the backend form of an attachment set, created once and
// shared by every instance with the same signature.
type RenderPass struct {
	id        PassID
	name      string
	signature string
	handle    gfx.RenderPass
	colors    []Attachment
	depth     *Attachment
	present   bool
	clear     []gfx.ClearValue
	refs      int
}

func (p *RenderPass) ID() PassID {
	return p.id
}

func (p *RenderPass) Name() string {
	return p.name
}

func (p *RenderPass) Handle() gfx.RenderPass {
	return p.handle
}

func (p *RenderPass) IsPresent() bool {
	return p.present
}

func (p *RenderPass) Signature() string {
	return p.signature
}

// ClearValues are ordered like the attachments, colors first.
func (p *RenderPass) ClearValues() []gfx.ClearValue {
	return p.clear
}

// Attachments returns the attachments colors first, then depth.
func (p *RenderPass) Attachments() []Attachment {
	out := append([]Attachment(nil), p.colors...)
	if p.depth != nil {
		out = append(out, *p.depth)
	}
	return out
}

func loadOp(c ClearPolicy) gfx.LoadOp {
	if c == ClearDontCare {
		return gfx.LoadOpDontCare
	}
	return gfx.LoadOpClear
}

func (p *RenderPass) desc() gfx.RenderPassDesc {
	desc := gfx.RenderPassDesc{Name: p.name}
	for _, c := range p.colors {
		desc.Colors = append(desc.Colors, gfx.AttachmentDesc{
			Format:  c.Format,
			Load:    loadOp(c.Clear),
			Store:   true,
			Present: p.present,
		})
	}
	if p.depth != nil {
		desc.Depth = &gfx.AttachmentDesc{
			Format: p.depth.Format,
			Load:   loadOp(p.depth.Clear),
			// Depth is never read back by another pass.
			Store: false,
		}
	}
	return desc
}

// PassCache deduplicates render passes by signature. It is shared by every
// frame graph of a context and safe for concurrent use.
type PassCache struct {
	mu     sync.Mutex
	device gfx.Device
	ids    *core.IDPool
	passes map[string]*RenderPass
}

func NewPassCache(device gfx.Device, ids *core.IDPool) *PassCache {
	return &PassCache{
		device: device,
		ids:    ids,
		passes: make(map[string]*RenderPass),
	}
}

// Get returns the render pass for the attachment set, creating it on first
// use. Every successful Get must be paired with a Release.
func (c *PassCache) Get(name string, attachments []Attachment, present bool) (*RenderPass, error) {
	colors, depth, err := splitAttachments(attachments)
	if err != nil {
		return nil, fmt.Errorf("pass %q: %w", name, err)
	}
	if present && len(colors) != 1 {
		return nil, fmt.Errorf("pass %q: %w: present pass needs exactly one color attachment, got %d", name, core.ErrInvalidGraph, len(colors))
	}
	if len(colors) == 0 && depth == nil {
		return nil, fmt.Errorf("pass %q: %w: no attachments", name, core.ErrInvalidGraph)
	}

	ordered := append([]Attachment(nil), colors...)
	if depth != nil {
		ordered = append(ordered, *depth)
	}
	sig := Signature(ordered, present)

	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.passes[sig]; ok {
		p.refs++
		return p, nil
	}

	p := &RenderPass{
		name:      name,
		signature: sig,
		colors:    colors,
		depth:     depth,
		present:   present,
	}
	for _, a := range ordered {
		p.clear = append(p.clear, a.clearValue())
	}
	handle, err := c.device.CreateRenderPass(p.desc())
	if err != nil {
		return nil, core.Fatal(err, "creating render pass %q", name)
	}
	p.handle = handle
	p.id = PassID(c.ids.Acquire(p))
	p.refs = 1
	c.passes[sig] = p

	core.LogDebug("render pass %q created (id=%d, signature=%s)", name, p.id, sig)
	return p, nil
}

// Release drops one reference, destroying the pass with the last one.
func (c *PassCache) Release(p *RenderPass) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p.refs--
	if p.refs > 0 {
		return
	}
	delete(c.passes, p.signature)
	c.device.DestroyRenderPass(p.handle)
	if err := c.ids.Release(uint32(p.id)); err != nil {
		core.LogWarn("releasing pass id: %s", err)
	}
	p.handle = 0
}

func (c *PassCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.passes)
}

func (c *PassCache) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for sig, p := range c.passes {
		c.device.DestroyRenderPass(p.handle)
		_ = c.ids.Release(uint32(p.id))
		delete(c.passes, sig)
	}
}
