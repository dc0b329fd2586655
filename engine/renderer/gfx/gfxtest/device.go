// Package gfxtest provides an in-memory gfx.Device that records every call,
// for testing code built on top of the gfx contract.
package gfxtest

import (
	"fmt"
	"sync"
	"time"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

type Op string

const (
	OpAllocateImage      Op = "allocate_image"
	OpResizeImage        Op = "resize_image"
	OpDestroyImage       Op = "destroy_image"
	OpCreateRenderPass   Op = "create_render_pass"
	OpCreateFramebuffer  Op = "create_framebuffer"
	OpDestroyFramebuffer Op = "destroy_framebuffer"
	OpCreateSemaphore    Op = "create_semaphore"
	OpCreateCommandBuf   Op = "create_command_buffer"
	OpBeginCommandBuf    Op = "begin_command_buffer"
	OpEndCommandBuf      Op = "end_command_buffer"
	OpBeginRenderPass    Op = "begin_render_pass"
	OpEndRenderPass      Op = "end_render_pass"
	OpSetViewport        Op = "set_viewport"
	OpSetScissor         Op = "set_scissor"
	OpSubmit             Op = "submit"
	OpAcquire            Op = "acquire"
	OpPresent            Op = "present"
	OpCreateSwapchain    Op = "create_swapchain"
	OpDestroySwapchain   Op = "destroy_swapchain"
	OpWaitIdle           Op = "wait_idle"
	OpWaitFence          Op = "wait_fence"
)

// Event is one recorded device call.
type Event struct {
	Op            Op
	CommandBuffer gfx.CommandBuffer
	Pass          gfx.RenderPass
	Framebuffer   gfx.Framebuffer
	Viewport      gfx.Viewport
	Scissor       gfx.Rect
	Clear         []gfx.ClearValue
	Handle        uint64
}

type Submission struct {
	Queue gfx.QueueKind
	Info  gfx.SubmitInfo
	Fence gfx.Fence
}

type Presentation struct {
	Queue     gfx.QueueKind
	Waits     []gfx.Semaphore
	Swapchain gfx.Swapchain
	Index     uint32
}

type ImageInfo struct {
	Desc      gfx.ImageDesc
	Swapchain gfx.Swapchain
	Destroyed bool
}

type FramebufferInfo struct {
	Pass      gfx.RenderPass
	Views     []gfx.ImageView
	Extent    gfx.Extent
	Destroyed bool
}

type swapchainInfo struct {
	desc      gfx.SwapchainDesc
	images    []gfx.Image
	next      uint32
	destroyed bool
}

// Device is a deterministic gfx.Device. Handles are allocated from a single
// counter so every handle value is unique across kinds.
type Device struct {
	mu sync.Mutex

	next   uint64
	events []Event

	images       map[gfx.Image]*ImageInfo
	views        map[gfx.Image]gfx.ImageView
	passes       map[gfx.RenderPass]gfx.RenderPassDesc
	framebuffers map[gfx.Framebuffer]*FramebufferInfo
	swapchains   map[gfx.Swapchain]*swapchainInfo
	fences       map[gfx.Fence]bool

	submissions   []Submission
	presentations []Presentation

	// Capabilities reported for every surface.
	Capabilities gfx.SurfaceCapabilities

	acquireScript []gfx.Status
	presentScript []gfx.Status
	failures      map[Op]error
}

func NewDevice() *Device {
	return &Device{
		images:       make(map[gfx.Image]*ImageInfo),
		views:        make(map[gfx.Image]gfx.ImageView),
		passes:       make(map[gfx.RenderPass]gfx.RenderPassDesc),
		framebuffers: make(map[gfx.Framebuffer]*FramebufferInfo),
		swapchains:   make(map[gfx.Swapchain]*swapchainInfo),
		fences:       make(map[gfx.Fence]bool),
		failures:     make(map[Op]error),
		Capabilities: gfx.SurfaceCapabilities{
			CurrentExtent: gfx.Extent{Width: 1920, Height: 1080},
			MinExtent:     gfx.Extent{Width: 1, Height: 1},
			MaxExtent:     gfx.Extent{Width: 8192, Height: 8192},
			MinImageCount: 2,
			MaxImageCount: 3,
			Formats: []gfx.SurfaceFormat{
				{Format: gfx.FormatB8G8R8A8Unorm, ColorSpace: gfx.ColorSpaceSrgbNonlinear},
			},
			PresentModes: []gfx.PresentMode{gfx.PresentModeFifo, gfx.PresentModeMailbox},
		},
	}
}

func (d *Device) handle() uint64 {
	d.next++
	return d.next
}

func (d *Device) record(e Event) {
	d.events = append(d.events, e)
}

func (d *Device) failure(op Op) error {
	if err, ok := d.failures[op]; ok {
		delete(d.failures, op)
		return err
	}
	return nil
}

// FailNext makes the next call of op return err.
func (d *Device) FailNext(op Op, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[op] = err
}

// ScriptAcquire queues the statuses returned by the following acquires.
func (d *Device) ScriptAcquire(statuses ...gfx.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acquireScript = append(d.acquireScript, statuses...)
}

// ScriptPresent queues the statuses returned by the following presents.
func (d *Device) ScriptPresent(statuses ...gfx.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presentScript = append(d.presentScript, statuses...)
}

// SetSurfaceExtent changes the extent reported by SurfaceCapabilities.
func (d *Device) SetSurfaceExtent(e gfx.Extent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Capabilities.CurrentExtent = e
}

// SetImageCount changes the image count bounds reported by
// SurfaceCapabilities. A zero max means unbounded.
func (d *Device) SetImageCount(lo, hi uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Capabilities.MinImageCount = lo
	d.Capabilities.MaxImageCount = hi
}

func (d *Device) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Event(nil), d.events...)
}

// EventsOf filters the recorded events by operation.
func (d *Device) EventsOf(op Op) []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Event
	for _, e := range d.events {
		if e.Op == op {
			out = append(out, e)
		}
	}
	return out
}

func (d *Device) Count(op Op) int {
	return len(d.EventsOf(op))
}

func (d *Device) ResetEvents() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = nil
	d.submissions = nil
	d.presentations = nil
}

func (d *Device) Submissions() []Submission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Submission(nil), d.submissions...)
}

func (d *Device) Presentations() []Presentation {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Presentation(nil), d.presentations...)
}

func (d *Device) Image(img gfx.Image) ImageInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	if info, ok := d.images[img]; ok {
		return *info
	}
	return ImageInfo{}
}

func (d *Device) Framebuffer(fb gfx.Framebuffer) FramebufferInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	if info, ok := d.framebuffers[fb]; ok {
		return *info
	}
	return FramebufferInfo{}
}

func (d *Device) RenderPassDesc(pass gfx.RenderPass) gfx.RenderPassDesc {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.passes[pass]
}

func (d *Device) AllocateImage(desc gfx.ImageDesc) (gfx.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failure(OpAllocateImage); err != nil {
		return 0, err
	}
	img := gfx.Image(d.handle())
	d.images[img] = &ImageInfo{Desc: desc}
	d.record(Event{Op: OpAllocateImage, Handle: uint64(img)})
	return img, nil
}

func (d *Device) ResizeImage(img gfx.Image, extent gfx.Extent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failure(OpResizeImage); err != nil {
		return err
	}
	info, ok := d.images[img]
	if !ok || info.Destroyed {
		return fmt.Errorf("resize of unknown image %d: %w", img, core.ErrUnknown)
	}
	info.Desc.Extent = extent
	// The storage changes, so does the view.
	delete(d.views, img)
	d.record(Event{Op: OpResizeImage, Handle: uint64(img)})
	return nil
}

func (d *Device) ImageView(img gfx.Image) (gfx.ImageView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.images[img]; !ok {
		return 0, fmt.Errorf("view of unknown image %d: %w", img, core.ErrUnknown)
	}
	if v, ok := d.views[img]; ok {
		return v, nil
	}
	v := gfx.ImageView(d.handle())
	d.views[img] = v
	return v, nil
}

func (d *Device) DestroyImage(img gfx.Image) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if info, ok := d.images[img]; ok {
		info.Destroyed = true
	}
	delete(d.views, img)
	d.record(Event{Op: OpDestroyImage, Handle: uint64(img)})
}

func (d *Device) CreateRenderPass(desc gfx.RenderPassDesc) (gfx.RenderPass, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failure(OpCreateRenderPass); err != nil {
		return 0, err
	}
	pass := gfx.RenderPass(d.handle())
	d.passes[pass] = desc
	d.record(Event{Op: OpCreateRenderPass, Pass: pass})
	return pass, nil
}

func (d *Device) DestroyRenderPass(pass gfx.RenderPass) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.passes, pass)
}

func (d *Device) CreateFramebuffer(pass gfx.RenderPass, views []gfx.ImageView, extent gfx.Extent) (gfx.Framebuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failure(OpCreateFramebuffer); err != nil {
		return 0, err
	}
	fb := gfx.Framebuffer(d.handle())
	d.framebuffers[fb] = &FramebufferInfo{
		Pass:   pass,
		Views:  append([]gfx.ImageView(nil), views...),
		Extent: extent,
	}
	d.record(Event{Op: OpCreateFramebuffer, Framebuffer: fb, Pass: pass})
	return fb, nil
}

func (d *Device) DestroyFramebuffer(fb gfx.Framebuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if info, ok := d.framebuffers[fb]; ok {
		info.Destroyed = true
	}
	d.record(Event{Op: OpDestroyFramebuffer, Framebuffer: fb})
}

func (d *Device) CreateSemaphore() (gfx.Semaphore, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failure(OpCreateSemaphore); err != nil {
		return 0, err
	}
	s := gfx.Semaphore(d.handle())
	d.record(Event{Op: OpCreateSemaphore, Handle: uint64(s)})
	return s, nil
}

func (d *Device) DestroySemaphore(s gfx.Semaphore) {}

func (d *Device) CreateFence(signaled bool) (gfx.Fence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := gfx.Fence(d.handle())
	d.fences[f] = signaled
	return f, nil
}

// Fences complete immediately: the fake device executes nothing.
func (d *Device) WaitForFence(f gfx.Fence, timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failure(OpWaitFence); err != nil {
		return err
	}
	d.fences[f] = true
	d.record(Event{Op: OpWaitFence, Handle: uint64(f)})
	return nil
}

func (d *Device) ResetFence(f gfx.Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fences[f] = false
	return nil
}

func (d *Device) DestroyFence(f gfx.Fence) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.fences, f)
}

func (d *Device) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(Event{Op: OpWaitIdle})
	return nil
}

func (d *Device) CreateCommandBuffer(queue gfx.QueueKind) (gfx.CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failure(OpCreateCommandBuf); err != nil {
		return 0, err
	}
	cb := gfx.CommandBuffer(d.handle())
	d.record(Event{Op: OpCreateCommandBuf, CommandBuffer: cb})
	return cb, nil
}

func (d *Device) FreeCommandBuffer(cb gfx.CommandBuffer) {}

func (d *Device) BeginCommandBuffer(cb gfx.CommandBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(Event{Op: OpBeginCommandBuf, CommandBuffer: cb})
	return nil
}

func (d *Device) EndCommandBuffer(cb gfx.CommandBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(Event{Op: OpEndCommandBuf, CommandBuffer: cb})
	return nil
}

func (d *Device) CmdBeginRenderPass(cb gfx.CommandBuffer, begin gfx.RenderPassBegin) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(Event{
		Op:            OpBeginRenderPass,
		CommandBuffer: cb,
		Pass:          begin.Pass,
		Framebuffer:   begin.Framebuffer,
		Scissor:       begin.Area,
		Clear:         append([]gfx.ClearValue(nil), begin.Clear...),
	})
}

func (d *Device) CmdEndRenderPass(cb gfx.CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(Event{Op: OpEndRenderPass, CommandBuffer: cb})
}

func (d *Device) CmdSetViewport(cb gfx.CommandBuffer, vp gfx.Viewport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(Event{Op: OpSetViewport, CommandBuffer: cb, Viewport: vp})
}

func (d *Device) CmdSetScissor(cb gfx.CommandBuffer, scissor gfx.Rect) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(Event{Op: OpSetScissor, CommandBuffer: cb, Scissor: scissor})
}

func (d *Device) Submit(queue gfx.QueueKind, info gfx.SubmitInfo, fence gfx.Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failure(OpSubmit); err != nil {
		return err
	}
	if signaled, ok := d.fences[fence]; fence != 0 && ok && signaled {
		return fmt.Errorf("submit with a signaled fence %d", fence)
	}
	d.submissions = append(d.submissions, Submission{
		Queue: queue,
		Info: gfx.SubmitInfo{
			Waits:          append([]gfx.SemaphoreWait(nil), info.Waits...),
			CommandBuffers: append([]gfx.CommandBuffer(nil), info.CommandBuffers...),
			Signals:        append([]gfx.Semaphore(nil), info.Signals...),
		},
		Fence: fence,
	})
	var cb gfx.CommandBuffer
	if len(info.CommandBuffers) > 0 {
		cb = info.CommandBuffers[0]
	}
	d.record(Event{Op: OpSubmit, CommandBuffer: cb, Handle: uint64(fence)})
	return nil
}

func (d *Device) SurfaceCapabilities(surface gfx.Surface) (gfx.SurfaceCapabilities, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Capabilities, nil
}

func (d *Device) CreateSwapchain(desc gfx.SwapchainDesc) (gfx.Swapchain, []gfx.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failure(OpCreateSwapchain); err != nil {
		return 0, nil, err
	}
	sc := gfx.Swapchain(d.handle())
	images := make([]gfx.Image, desc.ImageCount)
	for i := range images {
		img := gfx.Image(d.handle())
		d.images[img] = &ImageInfo{
			Desc: gfx.ImageDesc{
				Name:   fmt.Sprintf("swapchain-%d-%d", sc, i),
				Format: desc.Format.Format,
				Extent: desc.Extent,
				Usage:  gfx.UsageColorAttachment,
			},
			Swapchain: sc,
		}
		images[i] = img
	}
	d.swapchains[sc] = &swapchainInfo{desc: desc, images: images}
	d.record(Event{Op: OpCreateSwapchain, Handle: uint64(sc)})
	return sc, images, nil
}

func (d *Device) SwapchainDesc(sc gfx.Swapchain) gfx.SwapchainDesc {
	d.mu.Lock()
	defer d.mu.Unlock()
	if info, ok := d.swapchains[sc]; ok {
		return info.desc
	}
	return gfx.SwapchainDesc{}
}

func (d *Device) DestroySwapchain(sc gfx.Swapchain) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if info, ok := d.swapchains[sc]; ok {
		info.destroyed = true
		for _, img := range info.images {
			d.images[img].Destroyed = true
			delete(d.views, img)
		}
	}
	d.record(Event{Op: OpDestroySwapchain, Handle: uint64(sc)})
}

func (d *Device) AcquireNextImage(sc gfx.Swapchain, timeout time.Duration, signal gfx.Semaphore) (uint32, gfx.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failure(OpAcquire); err != nil {
		return 0, gfx.StatusSuccess, err
	}
	info, ok := d.swapchains[sc]
	if !ok || info.destroyed {
		return 0, gfx.StatusSuccess, fmt.Errorf("acquire on unknown swapchain %d: %w", sc, core.ErrUnknown)
	}
	status := gfx.StatusSuccess
	if len(d.acquireScript) > 0 {
		status = d.acquireScript[0]
		d.acquireScript = d.acquireScript[1:]
	}
	d.record(Event{Op: OpAcquire, Handle: uint64(signal)})
	if status == gfx.StatusOutOfDate {
		return 0, status, nil
	}
	index := info.next
	info.next = (info.next + 1) % uint32(len(info.images))
	return index, status, nil
}

func (d *Device) Present(queue gfx.QueueKind, waits []gfx.Semaphore, sc gfx.Swapchain, index uint32) (gfx.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failure(OpPresent); err != nil {
		return gfx.StatusSuccess, err
	}
	status := gfx.StatusSuccess
	if len(d.presentScript) > 0 {
		status = d.presentScript[0]
		d.presentScript = d.presentScript[1:]
	}
	d.presentations = append(d.presentations, Presentation{
		Queue:     queue,
		Waits:     append([]gfx.Semaphore(nil), waits...),
		Swapchain: sc,
		Index:     index,
	})
	d.record(Event{Op: OpPresent, Handle: uint64(sc)})
	return status, nil
}

var _ gfx.Device = (*Device)(nil)

// Window is a fake drawable whose size can be changed by tests.
type Window struct {
	mu         sync.Mutex
	surface    gfx.Surface
	extent     gfx.Extent
	generation uint64
}

func NewWindow(surface gfx.Surface, extent gfx.Extent) *Window {
	return &Window{surface: surface, extent: extent}
}

func (w *Window) Surface() gfx.Surface {
	return w.surface
}

func (w *Window) FramebufferSize() gfx.Extent {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.extent
}

func (w *Window) SizeGeneration() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.generation
}

func (w *Window) Resize(extent gfx.Extent) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.extent = extent
	w.generation++
}

var _ gfx.Window = (*Window)(nil)
