// Package vulkan binds the frame graph's gfx.Device contract to Vulkan.
package vulkan

import (
	"fmt"
	"time"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

// Backend implements gfx.Device. Every object handed out is registered in a
// handle table; the frame graph only ever sees the opaque handles.
type Backend struct {
	context *VulkanContext
	surface gfx.Surface

	images       *handleTable[*VulkanImage]
	views        *handleTable[vk.ImageView]
	passes       *handleTable[*VulkanRenderpass]
	framebuffers *handleTable[*VulkanFramebuffer]
	semaphores   *handleTable[vk.Semaphore]
	fences       *handleTable[*VulkanFence]
	commands     *handleTable[*VulkanCommandBuffer]
	swapchains   *handleTable[*VulkanSwapchain]
}

var _ gfx.Device = (*Backend)(nil)

func newBackend(context *VulkanContext) *Backend {
	b := &Backend{
		context:      context,
		images:       newHandleTable[*VulkanImage]("image"),
		views:        newHandleTable[vk.ImageView]("image view"),
		passes:       newHandleTable[*VulkanRenderpass]("render pass"),
		framebuffers: newHandleTable[*VulkanFramebuffer]("framebuffer"),
		semaphores:   newHandleTable[vk.Semaphore]("semaphore"),
		fences:       newHandleTable[*VulkanFence]("fence"),
		commands:     newHandleTable[*VulkanCommandBuffer]("command buffer"),
		swapchains:   newHandleTable[*VulkanSwapchain]("swapchain"),
	}
	// A backend drives exactly one window surface.
	b.surface = gfx.Surface(1)
	return b
}

// Surface is the handle of the window surface created at bootstrap.
func (b *Backend) Surface() gfx.Surface {
	return b.surface
}

func (b *Backend) device() vk.Device {
	return b.context.Device.LogicalDevice
}

func (b *Backend) AllocateImage(desc gfx.ImageDesc) (gfx.Image, error) {
	var image *VulkanImage
	err := b.context.Locks.SafeCall(ImageManagement, func() error {
		var err error
		image, err = ImageCreate(b.context, desc)
		return err
	})
	if err != nil {
		return 0, err
	}
	image.ViewID = gfx.ImageView(b.views.insert(image.View))
	return gfx.Image(b.images.insert(image)), nil
}

// ResizeImage recreates the storage behind img. The image handle stays the
// same; the view handle changes so that stale framebuffers are never reused.
func (b *Backend) ResizeImage(img gfx.Image, extent gfx.Extent) error {
	image, err := b.images.get(uint64(img))
	if err != nil {
		return err
	}
	if image.Swapchain != 0 {
		return fmt.Errorf("image %d belongs to swapchain %d and cannot be resized", img, image.Swapchain)
	}

	desc := image.Desc
	desc.Extent = extent
	var resized *VulkanImage
	err = b.context.Locks.SafeCall(ImageManagement, func() error {
		var err error
		resized, err = ImageCreate(b.context, desc)
		return err
	})
	if err != nil {
		return err
	}

	b.views.remove(uint64(image.ViewID))
	image.ImageDestroy(b.context)
	resized.ViewID = gfx.ImageView(b.views.insert(resized.View))
	b.images.replace(uint64(img), resized)
	return nil
}

func (b *Backend) ImageView(img gfx.Image) (gfx.ImageView, error) {
	image, err := b.images.get(uint64(img))
	if err != nil {
		return 0, err
	}
	return image.ViewID, nil
}

func (b *Backend) DestroyImage(img gfx.Image) {
	image, ok := b.images.remove(uint64(img))
	if !ok {
		return
	}
	b.views.remove(uint64(image.ViewID))
	image.ImageDestroy(b.context)
}

func (b *Backend) CreateRenderPass(desc gfx.RenderPassDesc) (gfx.RenderPass, error) {
	pass, err := RenderpassCreate(b.context, desc)
	if err != nil {
		return 0, err
	}
	return gfx.RenderPass(b.passes.insert(pass)), nil
}

func (b *Backend) DestroyRenderPass(pass gfx.RenderPass) {
	if p, ok := b.passes.remove(uint64(pass)); ok {
		p.RenderpassDestroy(b.context)
	}
}

func (b *Backend) CreateFramebuffer(pass gfx.RenderPass, views []gfx.ImageView, extent gfx.Extent) (gfx.Framebuffer, error) {
	p, err := b.passes.get(uint64(pass))
	if err != nil {
		return 0, err
	}
	attachments := make([]vk.ImageView, len(views))
	for i, v := range views {
		if attachments[i], err = b.views.get(uint64(v)); err != nil {
			return 0, err
		}
	}
	fb, err := FramebufferCreate(b.context, p, extent, attachments)
	if err != nil {
		return 0, err
	}
	return gfx.Framebuffer(b.framebuffers.insert(fb)), nil
}

func (b *Backend) DestroyFramebuffer(fb gfx.Framebuffer) {
	if f, ok := b.framebuffers.remove(uint64(fb)); ok {
		f.Destroy(b.context)
	}
}

func (b *Backend) CreateSemaphore() (gfx.Semaphore, error) {
	s, err := SemaphoreCreate(b.context)
	if err != nil {
		return 0, err
	}
	return gfx.Semaphore(b.semaphores.insert(s)), nil
}

func (b *Backend) DestroySemaphore(s gfx.Semaphore) {
	if sem, ok := b.semaphores.remove(uint64(s)); ok {
		vk.DestroySemaphore(b.device(), sem, b.context.Allocator)
	}
}

func (b *Backend) CreateFence(signaled bool) (gfx.Fence, error) {
	f, err := NewFence(b.context, signaled)
	if err != nil {
		return 0, err
	}
	return gfx.Fence(b.fences.insert(f)), nil
}

func (b *Backend) WaitForFence(f gfx.Fence, timeout time.Duration) error {
	fence, err := b.fences.get(uint64(f))
	if err != nil {
		return err
	}
	return fence.FenceWait(b.context, timeout)
}

func (b *Backend) ResetFence(f gfx.Fence) error {
	fence, err := b.fences.get(uint64(f))
	if err != nil {
		return err
	}
	return fence.FenceReset(b.context)
}

func (b *Backend) DestroyFence(f gfx.Fence) {
	if fence, ok := b.fences.remove(uint64(f)); ok {
		fence.FenceDestroy(b.context)
	}
}

func (b *Backend) WaitIdle() error {
	return resultError("vkDeviceWaitIdle", vk.DeviceWaitIdle(b.device()))
}

func (b *Backend) CreateCommandBuffer(queue gfx.QueueKind) (gfx.CommandBuffer, error) {
	cb, err := NewVulkanCommandBuffer(b.context, b.context.Device.queueFamily(queue), true)
	if err != nil {
		return 0, err
	}
	return gfx.CommandBuffer(b.commands.insert(cb)), nil
}

func (b *Backend) FreeCommandBuffer(cb gfx.CommandBuffer) {
	if c, ok := b.commands.remove(uint64(cb)); ok {
		c.Free(b.context)
	}
}

func (b *Backend) BeginCommandBuffer(cb gfx.CommandBuffer) error {
	c, err := b.commands.get(uint64(cb))
	if err != nil {
		return err
	}
	return c.Begin(true, false, false)
}

func (b *Backend) EndCommandBuffer(cb gfx.CommandBuffer) error {
	c, err := b.commands.get(uint64(cb))
	if err != nil {
		return err
	}
	return c.End()
}

// Recording commands are fire and forget: an unknown handle is a
// programmer error.
func (b *Backend) mustCommand(cb gfx.CommandBuffer) *VulkanCommandBuffer {
	c, err := b.commands.get(uint64(cb))
	if err != nil {
		panic(err)
	}
	return c
}

func (b *Backend) CmdBeginRenderPass(cb gfx.CommandBuffer, begin gfx.RenderPassBegin) {
	c := b.mustCommand(cb)
	pass, err := b.passes.get(uint64(begin.Pass))
	if err != nil {
		panic(err)
	}
	fb, err := b.framebuffers.get(uint64(begin.Framebuffer))
	if err != nil {
		panic(err)
	}
	pass.RenderpassBegin(c, fb.Handle, begin)
}

func (b *Backend) CmdEndRenderPass(cb gfx.CommandBuffer) {
	c := b.mustCommand(cb)
	vk.CmdEndRenderPass(c.Handle)
	c.State = COMMAND_BUFFER_STATE_RECORDING
}

func (b *Backend) CmdSetViewport(cb gfx.CommandBuffer, vp gfx.Viewport) {
	vk.CmdSetViewport(b.mustCommand(cb).Handle, 0, 1, []vk.Viewport{{
		X:        vp.X,
		Y:        vp.Y,
		Width:    vp.Width,
		Height:   vp.Height,
		MinDepth: vp.MinDepth,
		MaxDepth: vp.MaxDepth,
	}})
}

func (b *Backend) CmdSetScissor(cb gfx.CommandBuffer, scissor gfx.Rect) {
	vk.CmdSetScissor(b.mustCommand(cb).Handle, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: scissor.X, Y: scissor.Y},
		Extent: toVkExtent(scissor.Extent),
	}})
}

func (b *Backend) semaphoreList(handles []gfx.Semaphore) ([]vk.Semaphore, error) {
	out := make([]vk.Semaphore, len(handles))
	for i, h := range handles {
		s, err := b.semaphores.get(uint64(h))
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (b *Backend) Submit(queue gfx.QueueKind, info gfx.SubmitInfo, f gfx.Fence) error {
	waits := make([]vk.Semaphore, len(info.Waits))
	stages := make([]vk.PipelineStageFlags, len(info.Waits))
	for i, w := range info.Waits {
		s, err := b.semaphores.get(uint64(w.Semaphore))
		if err != nil {
			return err
		}
		waits[i] = s
		stages[i] = toVkStage(w.Stage)
	}
	signals, err := b.semaphoreList(info.Signals)
	if err != nil {
		return err
	}
	buffers := make([]*VulkanCommandBuffer, len(info.CommandBuffers))
	handles := make([]vk.CommandBuffer, len(info.CommandBuffers))
	for i, h := range info.CommandBuffers {
		c, err := b.commands.get(uint64(h))
		if err != nil {
			return err
		}
		buffers[i] = c
		handles[i] = c.Handle
	}

	var fence *VulkanFence
	var vkFence vk.Fence
	if f != 0 {
		if fence, err = b.fences.get(uint64(f)); err != nil {
			return err
		}
		vkFence = fence.Handle
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waits)),
		PWaitSemaphores:      waits,
		PWaitDstStageMask:    stages,
		CommandBufferCount:   uint32(len(handles)),
		PCommandBuffers:      handles,
		SignalSemaphoreCount: uint32(len(signals)),
		PSignalSemaphores:    signals,
	}

	d := b.context.Device
	err = b.context.Locks.SafeQueueCall(d.queueFamily(queue), func() error {
		return resultError(fmt.Sprintf("vkQueueSubmit(%s)", queue), vk.QueueSubmit(d.queue(queue), 1, []vk.SubmitInfo{submitInfo}, vkFence))
	})
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	if fence != nil {
		fence.IsSignaled = false
	}
	for _, c := range buffers {
		c.UpdateSubmitted()
	}
	return nil
}

func (b *Backend) SurfaceCapabilities(surface gfx.Surface) (gfx.SurfaceCapabilities, error) {
	if surface != b.surface {
		return gfx.SurfaceCapabilities{}, fmt.Errorf("unknown surface handle %d", surface)
	}
	return b.context.surfaceCapabilities()
}

func (b *Backend) CreateSwapchain(desc gfx.SwapchainDesc) (gfx.Swapchain, []gfx.Image, error) {
	if desc.Surface != b.surface {
		return 0, nil, fmt.Errorf("unknown surface handle %d", desc.Surface)
	}
	var old *VulkanSwapchain
	if desc.Old != 0 {
		var err error
		if old, err = b.swapchains.get(uint64(desc.Old)); err != nil {
			return 0, nil, err
		}
	}

	sc, err := SwapchainCreate(b.context, desc, old)
	if err != nil {
		return 0, nil, err
	}
	id := gfx.Swapchain(b.swapchains.insert(sc))
	images := make([]gfx.Image, len(sc.Images))
	for i, img := range sc.Images {
		img.Swapchain = id
		img.ViewID = gfx.ImageView(b.views.insert(img.View))
		images[i] = gfx.Image(b.images.insert(img))
	}
	return id, images, nil
}

func (b *Backend) DestroySwapchain(sc gfx.Swapchain) {
	s, ok := b.swapchains.remove(uint64(sc))
	if !ok {
		return
	}
	// The swapchain images are registered like any other image; forget them.
	for _, img := range b.images.drainWhere(func(i *VulkanImage) bool { return i.Swapchain == sc }) {
		b.views.remove(uint64(img.ViewID))
	}
	s.destroy(b.context)
}

func (b *Backend) AcquireNextImage(sc gfx.Swapchain, timeout time.Duration, signal gfx.Semaphore) (uint32, gfx.Status, error) {
	s, err := b.swapchains.get(uint64(sc))
	if err != nil {
		return 0, gfx.StatusSuccess, err
	}
	sem, err := b.semaphores.get(uint64(signal))
	if err != nil {
		return 0, gfx.StatusSuccess, err
	}
	return s.AcquireNextImageIndex(b.context, timeout, sem)
}

func (b *Backend) Present(queue gfx.QueueKind, waits []gfx.Semaphore, sc gfx.Swapchain, index uint32) (gfx.Status, error) {
	s, err := b.swapchains.get(uint64(sc))
	if err != nil {
		return gfx.StatusSuccess, err
	}
	semaphores, err := b.semaphoreList(waits)
	if err != nil {
		return gfx.StatusSuccess, err
	}

	d := b.context.Device
	var status gfx.Status
	err = b.context.Locks.SafeQueueCall(d.queueFamily(queue), func() error {
		var err error
		status, err = s.Present(d.queue(queue), semaphores, index)
		return err
	})
	return status, err
}

// Destroy releases every object still registered, then the device, the
// surface and the instance.
func (b *Backend) Destroy() {
	if b.context.Device.LogicalDevice != nil {
		if err := b.WaitIdle(); err != nil {
			core.LogWarn("destroying the backend: %s", err)
		}
	}
	for _, f := range b.framebuffers.drain() {
		f.Destroy(b.context)
	}
	for _, p := range b.passes.drain() {
		p.RenderpassDestroy(b.context)
	}
	for _, c := range b.commands.drain() {
		c.Free(b.context)
	}
	for _, s := range b.semaphores.drain() {
		vk.DestroySemaphore(b.device(), s, b.context.Allocator)
	}
	for _, f := range b.fences.drain() {
		f.FenceDestroy(b.context)
	}
	for _, img := range b.images.drain() {
		img.ImageDestroy(b.context)
	}
	for _, s := range b.swapchains.drain() {
		s.destroy(b.context)
	}
	b.views.drain()
	b.context.Destroy()
	core.LogInfo("Vulkan backend destroyed.")
}
