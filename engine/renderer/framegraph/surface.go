package framegraph

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/spaghettifunk/framegraph/engine/containers"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/math"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

// Surface owns the swapchain of a window: the rotating presentable images,
// one acquire semaphore per frame slot and the acquire/present protocol.
type Surface struct {
	ctx    *Context
	window gfx.Window
	handle gfx.Surface

	swapchain  gfx.Swapchain
	format     gfx.SurfaceFormat
	mode       gfx.PresentMode
	extent     gfx.Extent
	images     []gfx.Image
	views      *Resource[gfx.ImageView]
	generation uint64
	windowGen  uint64
	// The acquire semaphores may be left signaled; recreate before reuse.
	dirty bool

	// Free frame slots. slots bounds the frames in flight, free hands out
	// their indices.
	mu        sync.Mutex
	slots     *semaphore.Weighted
	free      *containers.RingQueue[uint32]
	acquires  []gfx.Semaphore
	current   Frame
	acquired  bool
	destroyed bool
}

// NewSurface creates the swapchain for window. A minimized window yields a
// surface without a swapchain; it is created on the first acquire after the
// window is restored.
func NewSurface(ctx *Context, window gfx.Window) (*Surface, error) {
	s := &Surface{
		ctx:    ctx,
		window: window,
		handle: window.Surface(),
	}
	s.views = NewPerImage("surface/views", 1, s.viewFactory())
	if err := s.CreateOrRecreate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Surface) viewFactory() Factory[gfx.ImageView] {
	images := s.images
	return func(frame Frame) (gfx.ImageView, error) {
		return s.ctx.Device.ImageView(images[frame.Image])
	}
}

func (s *Surface) Extent() gfx.Extent {
	return s.extent
}

func (s *Surface) Format() gfx.SurfaceFormat {
	return s.format
}

func (s *Surface) PresentMode() gfx.PresentMode {
	return s.mode
}

func (s *Surface) ImageCount() int {
	return len(s.images)
}

// Generation increments every time the swapchain is recreated.
func (s *Surface) Generation() uint64 {
	return s.generation
}

// Views is the presentable image views, keyed by swapchain image. The
// resource is shared with the present pass and survives recreation.
func (s *Surface) Views() *Resource[gfx.ImageView] {
	return s.views
}

// Current is the frame identity of the last acquire.
func (s *Surface) Current() Frame {
	return s.current
}

// Minimized reports whether the window has no drawable area.
func (s *Surface) Minimized() bool {
	return s.window.FramebufferSize().IsZero() || s.swapchain == 0
}

// CreateOrRecreate (re)builds the swapchain from the current window
// capabilities. With a zero sized window it does nothing.
func (s *Surface) CreateOrRecreate() error {
	size := s.window.FramebufferSize()
	if size.IsZero() {
		core.LogDebug("surface minimized, swapchain not recreated")
		return nil
	}
	windowGen := s.window.SizeGeneration()

	dev := s.ctx.Device
	caps, err := dev.SurfaceCapabilities(s.handle)
	if err != nil {
		return core.Fatal(err, "querying surface capabilities")
	}
	extent := chooseExtent(caps, size)
	if extent.IsZero() {
		return nil
	}
	format, err := chooseFormat(caps.Formats)
	if err != nil {
		return core.Fatal(err, "choosing surface format")
	}
	mode := choosePresentMode(caps.PresentModes, s.ctx.Options.PresentMode)
	count := chooseImageCount(caps, s.ctx.Options.FramesInFlight)

	// Nothing may still use the old chain or the acquire semaphores.
	if err := dev.WaitIdle(); err != nil {
		return core.Fatal(err, "waiting for device idle before recreating the swapchain")
	}

	old := s.swapchain
	sc, images, err := dev.CreateSwapchain(gfx.SwapchainDesc{
		Surface:     s.handle,
		Extent:      extent,
		Format:      format,
		PresentMode: mode,
		ImageCount:  count,
		Old:         old,
	})
	if err != nil {
		return core.Fatal(err, "creating swapchain %s", extent)
	}
	if old != 0 {
		// The views belong to the old images.
		s.views.Release()
		dev.DestroySwapchain(old)
	}

	s.swapchain = sc
	s.images = images
	s.format = format
	s.mode = mode
	s.extent = extent
	s.windowGen = windowGen
	s.generation++
	s.views.Reset(len(images), s.viewFactory())

	if err := s.resetSlots(len(images)); err != nil {
		return err
	}

	core.LogInfo("swapchain created: %s, %d images, %s, %s", extent, len(images), format.Format, mode)
	return nil
}

func (s *Surface) resetSlots(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sem := range s.acquires {
		s.ctx.Device.DestroySemaphore(sem)
	}
	s.acquires = make([]gfx.Semaphore, n)
	for i := range s.acquires {
		sem, err := s.ctx.Device.CreateSemaphore()
		if err != nil {
			return core.Fatal(err, "creating acquire semaphore %d", i)
		}
		s.acquires[i] = sem
	}
	s.slots = semaphore.NewWeighted(int64(n))
	s.free = containers.NewRingQueue[uint32](n)
	for i := 0; i < n; i++ {
		_ = s.free.Enqueue(uint32(i))
	}
	s.acquired = false
	s.dirty = false
	return nil
}

// Acquire waits for a free frame slot and the next presentable image. The
// slot's acquire semaphore becomes the wait semaphore of the next submit of
// inst. ErrSurfaceStale means the surface must be recreated and nothing was
// acquired.
func (s *Surface) Acquire(ctx context.Context, inst *Instance) (Frame, error) {
	if s.swapchain == 0 || s.dirty || s.window.SizeGeneration() != s.windowGen {
		return Frame{}, core.ErrSurfaceStale
	}

	if err := s.slots.Acquire(ctx, 1); err != nil {
		return Frame{}, fmt.Errorf("waiting for a free frame slot: %w", err)
	}
	s.mu.Lock()
	slot, err := s.free.Dequeue()
	s.mu.Unlock()
	if err != nil {
		s.slots.Release(1)
		return Frame{}, fmt.Errorf("frame slot: %w", err)
	}

	sem := s.acquires[slot]
	index, status, err := s.ctx.Device.AcquireNextImage(s.swapchain, s.ctx.Options.AcquireTimeout, sem)
	if err != nil {
		s.releaseSlot(slot)
		if core.IsFatal(err) {
			return Frame{}, core.Fatal(err, "acquiring image for slot %d", slot)
		}
		return Frame{}, fmt.Errorf("acquiring image for slot %d: %w", slot, err)
	}
	if status.Stale() {
		s.releaseSlot(slot)
		if status == gfx.StatusSuboptimal {
			// The semaphore will be signaled without anyone waiting on it.
			s.dirty = true
		}
		return Frame{}, core.ErrSurfaceStale
	}

	s.current = Frame{InFlight: slot, Image: index}
	s.acquired = true
	s.views.Begin(s.current)
	inst.begin(s.current)
	inst.setAcquire(sem)
	return s.current, nil
}

// Present queues the current image for presentation once inst has
// finished rendering it, then frees the frame slot. ErrSurfaceStale means
// the image was presented (or dropped) and the surface must be recreated.
func (s *Surface) Present(inst *Instance) error {
	if !s.acquired {
		panic("surface: present without an acquired image")
	}
	frame := s.current
	defer s.releaseSlot(frame.InFlight)

	wait, err := inst.Finished(frame)
	if err != nil {
		return core.Fatal(err, "present %v", frame)
	}
	status, err := s.ctx.Present.Present([]gfx.Semaphore{wait}, s.swapchain, frame.Image)
	if err != nil {
		if core.IsFatal(err) {
			return core.Fatal(err, "presenting %v", frame)
		}
		return fmt.Errorf("presenting %v: %w", frame, err)
	}
	if status.Stale() {
		return core.ErrSurfaceStale
	}
	return nil
}

// Abandon gives back the slot of an acquired frame that will not be
// presented. Its acquire semaphore may stay signaled, so the surface is
// recreated before the next acquire. The completion semaphores of passes
// already submitted for the frame are not covered: every Record or Submit
// failure is fatal and the graph is not driven again.
func (s *Surface) Abandon() {
	if !s.acquired {
		return
	}
	inFlight := s.current.InFlight
	s.dirty = true
	s.releaseSlot(inFlight)
}

func (s *Surface) releaseSlot(slot uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.free.Enqueue(slot); err != nil {
		core.LogWarn("releasing frame slot %d: %s", slot, err)
		return
	}
	s.acquired = false
	s.slots.Release(1)
}

func (s *Surface) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	dev := s.ctx.Device
	if err := dev.WaitIdle(); err != nil {
		core.LogError("waiting for device idle: %s", err)
	}
	s.views.Release()
	s.mu.Lock()
	for _, sem := range s.acquires {
		dev.DestroySemaphore(sem)
	}
	s.acquires = nil
	s.mu.Unlock()
	if s.swapchain != 0 {
		dev.DestroySwapchain(s.swapchain)
		s.swapchain = 0
	}
}

func chooseExtent(caps gfx.SurfaceCapabilities, window gfx.Extent) gfx.Extent {
	if caps.CurrentExtent != gfx.UndefinedExtent {
		return caps.CurrentExtent
	}
	return gfx.Extent{
		Width:  math.Clamp(window.Width, caps.MinExtent.Width, caps.MaxExtent.Width),
		Height: math.Clamp(window.Height, caps.MinExtent.Height, caps.MaxExtent.Height),
	}
}

func chooseFormat(formats []gfx.SurfaceFormat) (gfx.SurfaceFormat, error) {
	if len(formats) == 0 {
		return gfx.SurfaceFormat{}, fmt.Errorf("surface reports no formats")
	}
	for _, f := range formats {
		if f.Format == gfx.FormatB8G8R8A8Srgb && f.ColorSpace == gfx.ColorSpaceSrgbNonlinear {
			return f, nil
		}
	}
	return formats[0], nil
}

// choosePresentMode returns preferred when supported, FIFO otherwise.
func choosePresentMode(modes []gfx.PresentMode, preferred gfx.PresentMode) gfx.PresentMode {
	for _, m := range modes {
		if m == preferred {
			return m
		}
	}
	return gfx.PresentModeFifo
}

func chooseImageCount(caps gfx.SurfaceCapabilities, desired int) uint32 {
	count := caps.MinImageCount + 1
	if desired > 0 {
		count = math.Max(uint32(desired), caps.MinImageCount)
	}
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}
