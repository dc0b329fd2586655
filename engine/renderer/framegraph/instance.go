package framegraph

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

// Target is what a pass is instantiated against.
type Target struct {
	// Surface providing the presentable image. Required by present passes,
	// ignored by the others.
	Surface *Surface
	// Frames in flight. Present passes use the surface image count.
	Frames int
}

type binding struct {
	name  string
	image gfx.Image
	// The presentable image is shared with the surface and never owned.
	shared bool
}

// Instance is a render pass bound to concrete images and a resolution. It
// owns its framebuffers, command buffers and completion semaphores, one per
// frame slot, and the children whose output it consumes.
type Instance struct {
	ctx     *Context
	name    string
	pass    *RenderPass
	surface *Surface

	bindings   []binding
	resolution gfx.Extent
	remap      RemapFunc
	frames     int

	framebuffers *Resource[gfx.Framebuffer]
	commands     *Resource[gfx.CommandBuffer]
	finished     *Resource[gfx.Semaphore]

	children []*Instance
	render   RenderFunc

	// Set by the surface on acquire, consumed by the next submit.
	acquire gfx.Semaphore

	surfaceGen uint64
	generation uint64
	destroyed  bool
	log        *log.Logger
}

// Instantiate binds the pass to new images sized to resolution. It takes
// over the pass reference obtained from the PassCache: the instance releases
// it on Destroy, a failed Instantiate releases it immediately.
func (p *RenderPass) Instantiate(ctx *Context, target Target, resolution gfx.Extent) (*Instance, error) {
	if resolution.IsZero() {
		ctx.Passes.Release(p)
		return nil, fmt.Errorf("pass %q: %w: zero resolution %s", p.name, core.ErrInvalidGraph, resolution)
	}
	frames := target.Frames
	if p.present {
		if target.Surface == nil {
			ctx.Passes.Release(p)
			return nil, fmt.Errorf("pass %q: %w: present pass without a surface", p.name, core.ErrInvalidGraph)
		}
		frames = target.Surface.ImageCount()
	}
	if frames < 1 {
		frames = ctx.framesInFlight()
	}

	dev := ctx.Device
	i := &Instance{
		ctx:        ctx,
		name:       p.name,
		pass:       p,
		resolution: resolution,
		remap:      Identity,
		frames:     frames,
		log:        core.LogWith("pass", p.name),
	}
	if p.present {
		i.surface = target.Surface
		i.surfaceGen = target.Surface.Generation()
	}

	if err := i.allocateImages(); err != nil {
		i.Destroy()
		return nil, err
	}
	i.commands = NewPerFrame(p.name+"/commands", frames, func(Frame) (gfx.CommandBuffer, error) {
		return dev.CreateCommandBuffer(gfx.QueueGraphics)
	}).OnRelease(dev.FreeCommandBuffer)
	i.finished = NewPerFrame(p.name+"/finished", frames, func(Frame) (gfx.Semaphore, error) {
		return dev.CreateSemaphore()
	}).OnRelease(dev.DestroySemaphore)
	i.framebuffers = i.newFramebuffers()

	i.log.Debug("instantiated", "resolution", resolution, "frames", frames)
	return i, nil
}

func usage(a Attachment) gfx.ImageUsage {
	if a.IsDepth() {
		return gfx.UsageDepthStencilAttachment
	}
	return gfx.UsageColorAttachment | gfx.UsageSampled
}

func (i *Instance) allocateImages() error {
	for idx, a := range i.pass.Attachments() {
		if i.pass.present && idx == 0 {
			i.bindings = append(i.bindings, binding{name: a.Name, shared: true})
			continue
		}
		desc := gfx.ImageDesc{
			Name:   fmt.Sprintf("%s/%s-%s", i.name, a.Name, uuid.NewString()[:8]),
			Format: a.Format,
			Extent: i.resolution,
			Usage:  usage(a),
		}
		img, err := i.ctx.Device.AllocateImage(desc)
		if err != nil {
			return core.Fatal(err, "allocating image %q of pass %q", desc.Name, i.name)
		}
		i.bindings = append(i.bindings, binding{name: a.Name, image: img})
	}
	return nil
}

func (i *Instance) views(frame Frame) ([]gfx.ImageView, error) {
	views := make([]gfx.ImageView, 0, len(i.bindings))
	for _, b := range i.bindings {
		var (
			v   gfx.ImageView
			err error
		)
		if b.shared {
			v, err = i.surface.Views().Get(frame)
		} else {
			v, err = i.ctx.Device.ImageView(b.image)
		}
		if err != nil {
			return nil, fmt.Errorf("view of attachment %q: %w", b.name, err)
		}
		views = append(views, v)
	}
	return views, nil
}

func (i *Instance) framebufferFactory(resolution gfx.Extent) Factory[gfx.Framebuffer] {
	return func(frame Frame) (gfx.Framebuffer, error) {
		views, err := i.views(frame)
		if err != nil {
			return 0, err
		}
		return i.ctx.Device.CreateFramebuffer(i.pass.handle, views, resolution)
	}
}

// Framebuffers of the present pass follow the swapchain images, the others
// follow the frames in flight.
func (i *Instance) newFramebuffers() *Resource[gfx.Framebuffer] {
	name := i.name + "/framebuffers"
	build := i.framebufferFactory(i.resolution)
	var r *Resource[gfx.Framebuffer]
	if i.surface != nil {
		r = NewPerImage(name, i.surface.ImageCount(), build)
	} else {
		r = NewPerFrame(name, i.frames, build)
	}
	return r.OnRelease(i.ctx.Device.DestroyFramebuffer)
}

func (i *Instance) Name() string {
	return i.name
}

func (i *Instance) Pass() *RenderPass {
	return i.pass
}

func (i *Instance) IsPresent() bool {
	return i.surface != nil
}

func (i *Instance) Resolution() gfx.Extent {
	return i.resolution
}

func (i *Instance) Frames() int {
	return i.frames
}

func (i *Instance) Children() []*Instance {
	return i.children
}

// Generation counts the resizes that actually rebuilt state.
func (i *Instance) Generation() uint64 {
	return i.generation
}

// Images returns the owned attachment images, colors first. The shared
// presentable image of a present pass is not included.
func (i *Instance) Images() []gfx.Image {
	var out []gfx.Image
	for _, b := range i.bindings {
		if !b.shared {
			out = append(out, b.image)
		}
	}
	return out
}

func (i *Instance) Framebuffer(frame Frame) (gfx.Framebuffer, error) {
	return i.framebuffers.Get(frame)
}

// Finished is the semaphore signaled when the pass work of frame completes.
func (i *Instance) Finished(frame Frame) (gfx.Semaphore, error) {
	return i.finished.Get(frame)
}

// SetRemap sets how the instance derives its resolution from the target.
// It takes effect on the next resize.
func (i *Instance) SetRemap(fn RemapFunc) {
	if fn == nil {
		fn = Identity
	}
	i.remap = fn
}

// Attach appends child to the passes drawn before this one. No cycle
// detection is performed.
func (i *Instance) Attach(child *Instance) {
	i.children = append(i.children, child)
}

// OnRender replaces the recording callback. With no callback the pass only
// clears its attachments.
func (i *Instance) OnRender(fn RenderFunc) {
	i.render = fn
}

func (i *Instance) setAcquire(s gfx.Semaphore) {
	i.acquire = s
}

// begin pins the per-frame caches of the tree to frame.
func (i *Instance) begin(frame Frame) {
	if i.commands != nil {
		i.commands.Begin(frame)
		i.finished.Begin(frame)
		i.framebuffers.Begin(frame)
	}
	for _, c := range i.children {
		c.begin(frame)
	}
}

// Resize propagates a new target resolution through the instance and its
// children. Each instance renders at its remap of target. A present
// instance always renders at the surface extent, which then becomes the
// target of its children. Resizing to the current resolution while the
// surface is unchanged rebuilds nothing.
//
// The caller must have drained the device.
func (i *Instance) Resize(target gfx.Extent) error {
	frames := i.frames
	if i.surface != nil {
		frames = i.surface.ImageCount()
		target = i.surface.Extent()
	}
	return i.resize(target, frames)
}

func (i *Instance) resize(target gfx.Extent, frames int) error {
	resolution := i.remap(target)
	if i.surface != nil {
		resolution = i.surface.Extent()
	}
	if resolution.IsZero() {
		return fmt.Errorf("pass %q: %w: remap of %s gives %s", i.name, core.ErrInvalidGraph, target, resolution)
	}

	reslotted := frames != i.frames
	rebind := i.surface != nil && i.surface.Generation() != i.surfaceGen
	resized := resolution != i.resolution

	if reslotted {
		i.commands.Reset(frames, nil)
		i.finished.Reset(frames, nil)
		i.frames = frames
	}
	if resized {
		for _, b := range i.bindings {
			if b.shared {
				continue
			}
			if err := i.ctx.Device.ResizeImage(b.image, resolution); err != nil {
				return core.Fatal(err, "resizing attachment %q of pass %q to %s", b.name, i.name, resolution)
			}
		}
	}
	if reslotted || rebind || resized {
		build := i.framebufferFactory(resolution)
		switch {
		case i.surface != nil:
			i.framebuffers.Reset(i.surface.ImageCount(), build)
			i.surfaceGen = i.surface.Generation()
		case reslotted:
			i.framebuffers.Reset(frames, build)
		default:
			i.framebuffers.Invalidate(build)
		}
		i.resolution = resolution
		i.generation++
		i.log.Debug("resized", "resolution", resolution, "frames", frames, "generation", i.generation)
	}

	for _, c := range i.children {
		if err := c.resize(target, frames); err != nil {
			return err
		}
	}
	return nil
}

// Draw records and submits the children, then this pass.
func (i *Instance) Draw(frame Frame, scene Scene) error {
	if err := i.Record(frame, scene); err != nil {
		return err
	}
	return i.Submit(frame)
}

// Record draws every child, then records this pass into the command buffer
// of frame. The pass is not submitted.
func (i *Instance) Record(frame Frame, scene Scene) error {
	for _, c := range i.children {
		if err := c.Draw(frame, scene); err != nil {
			return err
		}
	}

	// The command buffer of this slot may still be executing.
	if err := i.ctx.Graphics.Wait(); err != nil {
		return err
	}

	cb, err := i.commands.Get(frame)
	if err != nil {
		return core.Fatal(err, "pass %q", i.name)
	}
	fb, err := i.framebuffers.Get(frame)
	if err != nil {
		return core.Fatal(err, "pass %q", i.name)
	}

	dev := i.ctx.Device
	if err := dev.BeginCommandBuffer(cb); err != nil {
		return core.Fatal(err, "pass %q %v: begin command buffer", i.name, frame)
	}

	w, h := float32(i.resolution.Width), float32(i.resolution.Height)
	area := gfx.Rect{Extent: i.resolution}
	dev.CmdBeginRenderPass(cb, gfx.RenderPassBegin{
		Pass:        i.pass.handle,
		Framebuffer: fb,
		Area:        area,
		Clear:       i.pass.clear,
	})
	// Flipped Y.
	dev.CmdSetViewport(cb, gfx.Viewport{
		X:        0,
		Y:        h,
		Width:    w,
		Height:   -h,
		MinDepth: 0,
		MaxDepth: 1,
	})
	dev.CmdSetScissor(cb, area)

	if i.render != nil {
		i.render(Recorder{
			Device:     dev,
			Cmd:        cb,
			Pass:       i.pass,
			Frame:      frame,
			Resolution: i.resolution,
		}, scene)
	}

	dev.CmdEndRenderPass(cb)
	if err := dev.EndCommandBuffer(cb); err != nil {
		return core.Fatal(err, "pass %q %v: end command buffer", i.name, frame)
	}
	return nil
}

// Submit submits the recorded commands of frame to the graphics queue,
// waiting on the completion of every child and, for the present pass, on
// the acquired image.
func (i *Instance) Submit(frame Frame) error {
	cb, err := i.commands.Get(frame)
	if err != nil {
		return core.Fatal(err, "pass %q", i.name)
	}
	signal, err := i.finished.Get(frame)
	if err != nil {
		return core.Fatal(err, "pass %q", i.name)
	}

	waits := make([]gfx.SemaphoreWait, 0, len(i.children)+1)
	for _, c := range i.children {
		s, err := c.finished.Get(frame)
		if err != nil {
			return core.Fatal(err, "pass %q", c.name)
		}
		waits = append(waits, gfx.SemaphoreWait{Semaphore: s, Stage: gfx.StageColorAttachmentOutput})
	}
	if i.surface != nil {
		if i.acquire == 0 {
			panic(fmt.Sprintf("pass %q: present pass submitted without an acquired image", i.name))
		}
		waits = append(waits, gfx.SemaphoreWait{Semaphore: i.acquire, Stage: gfx.StageColorAttachmentOutput})
		i.acquire = 0
	}

	err = i.ctx.Graphics.Submit(gfx.SubmitInfo{
		Waits:          waits,
		CommandBuffers: []gfx.CommandBuffer{cb},
		Signals:        []gfx.Semaphore{signal},
	})
	if err != nil {
		return fmt.Errorf("pass %q %v: %w", i.name, frame, err)
	}
	return nil
}

// Destroy releases the children, then every resource of the instance.
// The caller must have drained the device.
func (i *Instance) Destroy() {
	if i.destroyed {
		return
	}
	i.destroyed = true

	for _, c := range i.children {
		c.Destroy()
	}
	i.children = nil

	if i.framebuffers != nil {
		i.framebuffers.Release()
	}
	if i.commands != nil {
		i.commands.Release()
	}
	if i.finished != nil {
		i.finished.Release()
	}
	for _, b := range i.bindings {
		if !b.shared {
			i.ctx.Device.DestroyImage(b.image)
		}
	}
	i.bindings = nil
	i.ctx.Passes.Release(i.pass)
}
