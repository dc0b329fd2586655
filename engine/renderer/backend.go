package renderer

import "github.com/spaghettifunk/framegraph/engine/renderer/gfx"

// RendererBackend is the device a Renderer draws with. The Renderer owns it
// and destroys it on shutdown.
type RendererBackend interface {
	gfx.Device
	Destroy()
}

type RendererType uint8

const (
	Vulkan RendererType = iota
)

func (t RendererType) String() string {
	switch t {
	case Vulkan:
		return "vulkan"
	}
	return "unknown"
}
