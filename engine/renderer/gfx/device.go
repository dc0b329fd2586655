package gfx

import "time"

// Allocator owns GPU memory for images. ResizeImage keeps the handle stable;
// ImageView always returns the view of the image's current storage.
type Allocator interface {
	AllocateImage(desc ImageDesc) (Image, error)
	ResizeImage(img Image, extent Extent) error
	ImageView(img Image) (ImageView, error)
	DestroyImage(img Image)
}

type PassFactory interface {
	CreateRenderPass(desc RenderPassDesc) (RenderPass, error)
	DestroyRenderPass(pass RenderPass)
	CreateFramebuffer(pass RenderPass, views []ImageView, extent Extent) (Framebuffer, error)
	DestroyFramebuffer(fb Framebuffer)
}

type Synchronizer interface {
	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(s Semaphore)
	CreateFence(signaled bool) (Fence, error)
	// WaitForFence blocks the calling goroutine until the fence is signaled.
	WaitForFence(f Fence, timeout time.Duration) error
	ResetFence(f Fence) error
	DestroyFence(f Fence)
	// WaitIdle drains every queue of the device.
	WaitIdle() error
}

type CommandRecorder interface {
	CreateCommandBuffer(queue QueueKind) (CommandBuffer, error)
	FreeCommandBuffer(cb CommandBuffer)
	BeginCommandBuffer(cb CommandBuffer) error
	EndCommandBuffer(cb CommandBuffer) error
	CmdBeginRenderPass(cb CommandBuffer, begin RenderPassBegin)
	CmdEndRenderPass(cb CommandBuffer)
	CmdSetViewport(cb CommandBuffer, vp Viewport)
	CmdSetScissor(cb CommandBuffer, scissor Rect)
}

type Presenter interface {
	SurfaceCapabilities(surface Surface) (SurfaceCapabilities, error)
	// CreateSwapchain returns the presentable images in swapchain index order.
	CreateSwapchain(desc SwapchainDesc) (Swapchain, []Image, error)
	DestroySwapchain(sc Swapchain)
	AcquireNextImage(sc Swapchain, timeout time.Duration, signal Semaphore) (uint32, Status, error)
	Present(queue QueueKind, waits []Semaphore, sc Swapchain, index uint32) (Status, error)
}

// Device is the full binding of a graphics API consumed by the frame graph.
// Submit must not be called concurrently for the same queue; the frame graph
// serializes submissions per queue.
type Device interface {
	Allocator
	PassFactory
	Synchronizer
	CommandRecorder
	Presenter
	Submit(queue QueueKind, info SubmitInfo, fence Fence) error
}

// Window is the drawable the presentation surface is created for.
type Window interface {
	// Surface is the backend surface handle created for the window.
	Surface() Surface
	FramebufferSize() Extent
	// SizeGeneration increments every time the drawable changes size.
	SizeGeneration() uint64
}
