package config

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

type AttachmentConfig struct {
	Name   string     `toml:"name"`
	Format gfx.Format `toml:"format"`
	// dont_care, color or depth_stencil.
	Clear      string     `toml:"clear"`
	ClearColor [4]float32 `toml:"clear_color"`
	ClearDepth float32    `toml:"clear_depth"`
}

func (a AttachmentConfig) attachment() (framegraph.Attachment, error) {
	policy, err := framegraph.ParseClearPolicy(a.Clear)
	if err != nil {
		return framegraph.Attachment{}, fmt.Errorf("attachment %q: %w", a.Name, err)
	}
	return framegraph.Attachment{
		Name:   a.Name,
		Format: a.Format,
		Clear:  policy,
		Value:  gfx.ClearValue{Color: a.ClearColor, Depth: a.ClearDepth},
	}, nil
}

type PassConfig struct {
	Name    string   `toml:"name"`
	Present bool     `toml:"present"`
	Inputs  []string `toml:"inputs"`
	// Resolution relative to the present target, whatever pass consumes
	// this one. Zero means 1.
	Scale       float32            `toml:"scale"`
	Attachments []AttachmentConfig `toml:"attachment"`
}

// GraphConfig is the [[pass]] list of the configuration file.
type GraphConfig []PassConfig

// Largest accepted scale.
const maxScale = 8

// RenderFuncs maps pass names to their recording callbacks.
type RenderFuncs map[string]framegraph.RenderFunc

func (g GraphConfig) validate() error {
	if len(g) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(g))
	presents := 0
	for _, p := range g {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: pass without a name", core.ErrInvalidGraph)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate pass %q", core.ErrInvalidGraph, p.Name)
		}
		seen[p.Name] = true
		if p.Present {
			presents++
		}
		if p.Scale < 0 {
			return fmt.Errorf("%w: pass %q has a negative scale", core.ErrInvalidGraph, p.Name)
		}
		if p.Scale > maxScale {
			return fmt.Errorf("%w: pass %q scale %g above %d", core.ErrInvalidGraph, p.Name, p.Scale, maxScale)
		}
		for _, a := range p.Attachments {
			if _, err := framegraph.ParseClearPolicy(a.Clear); err != nil {
				return fmt.Errorf("%w: pass %q: %w", core.ErrInvalidGraph, p.Name, err)
			}
		}
	}
	if presents != 1 {
		return fmt.Errorf("%w: want exactly one present pass, got %d", core.ErrInvalidGraph, presents)
	}
	for _, p := range g {
		for _, in := range p.Inputs {
			if !seen[in] {
				return fmt.Errorf("%w: pass %q reads unknown pass %q", core.ErrInvalidGraph, p.Name, in)
			}
		}
	}
	return nil
}

// Build turns the description into render nodes and returns the present
// root. Passes not reachable from the root are reported and left out.
func (g GraphConfig) Build(render RenderFuncs) (*framegraph.RenderNode, error) {
	if len(g) == 0 {
		return nil, fmt.Errorf("%w: no passes", core.ErrInvalidGraph)
	}
	if err := g.validate(); err != nil {
		return nil, err
	}

	nodes := make(map[string]*framegraph.RenderNode, len(g))
	var root *framegraph.RenderNode
	for _, p := range g {
		var n *framegraph.RenderNode
		if p.Present {
			n = framegraph.NewPresentNode(p.Name)
			root = n
		} else {
			n = framegraph.NewRenderNode(p.Name)
		}
		for _, ac := range p.Attachments {
			a, err := ac.attachment()
			if err != nil {
				return nil, fmt.Errorf("%w: pass %q: %w", core.ErrInvalidGraph, p.Name, err)
			}
			n.AddResource(a)
		}
		if p.Scale > 0 && p.Scale != 1 {
			n.ResolutionRemap(framegraph.Scale(p.Scale))
		}
		if fn, ok := render[p.Name]; ok {
			n.OnRender(fn)
		}
		nodes[p.Name] = n
	}

	for _, p := range g {
		for _, in := range p.Inputs {
			if err := nodes[p.Name].Attach(nodes[in]); err != nil {
				return nil, err
			}
		}
	}

	if err := framegraph.Validate(root); err != nil {
		return nil, err
	}

	reachable := make(map[*framegraph.RenderNode]bool, len(nodes))
	var mark func(n *framegraph.RenderNode)
	mark = func(n *framegraph.RenderNode) {
		if reachable[n] {
			return
		}
		reachable[n] = true
		for _, in := range n.Inputs() {
			mark(in)
		}
	}
	mark(root)
	for _, p := range g {
		if !reachable[nodes[p.Name]] {
			core.LogWarn("pass %q is not reachable from %q and will not be drawn", p.Name, root.Name())
		}
	}
	return root, nil
}
