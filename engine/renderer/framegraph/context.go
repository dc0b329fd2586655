// Package framegraph schedules a tree of render passes against a
// presentation surface. Passes are described by RenderNodes, compiled into
// Instances bound to images and a resolution, and driven once per tick by a
// FrameGraph through acquire, draw, submit and present.
package framegraph

import (
	"time"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

const (
	DefaultFramesInFlight = 2
	DefaultAcquireTimeout = time.Second
	DefaultFenceTimeout   = time.Second
)

type Options struct {
	// Frames in flight for graphs without a surface, and the preferred
	// swapchain image count for graphs with one. Zero picks a default.
	FramesInFlight int
	PresentMode    gfx.PresentMode
	AcquireTimeout time.Duration
	FenceTimeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.AcquireTimeout <= 0 {
		o.AcquireTimeout = DefaultAcquireTimeout
	}
	if o.FenceTimeout <= 0 {
		o.FenceTimeout = DefaultFenceTimeout
	}
	return o
}

// Context bundles the device and the state shared by every frame graph
// created on it: the queues and the render pass cache.
type Context struct {
	Device   gfx.Device
	Graphics *Queue
	Present  *Queue
	Passes   *PassCache
	Options  Options
}

func NewContext(device gfx.Device, opts Options) (*Context, error) {
	opts = opts.withDefaults()

	graphics, err := NewQueue(device, gfx.QueueGraphics, opts.FenceTimeout)
	if err != nil {
		return nil, err
	}
	present, err := NewQueue(device, gfx.QueuePresent, opts.FenceTimeout)
	if err != nil {
		graphics.Destroy()
		return nil, err
	}
	return &Context{
		Device:   device,
		Graphics: graphics,
		Present:  present,
		Passes:   NewPassCache(device, core.NewIDPool(16)),
		Options:  opts,
	}, nil
}

// framesInFlight is the slot count used by graphs without a surface.
func (c *Context) framesInFlight() int {
	if c.Options.FramesInFlight > 0 {
		return c.Options.FramesInFlight
	}
	return DefaultFramesInFlight
}

// Destroy releases the queues and every cached render pass. All frame
// graphs created on the context must be destroyed first.
func (c *Context) Destroy() {
	if err := c.Device.WaitIdle(); err != nil {
		core.LogError("waiting for device idle: %s", err)
	}
	c.Passes.Destroy()
	c.Present.Destroy()
	c.Graphics.Destroy()
}
