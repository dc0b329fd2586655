package vulkan

import (
	"time"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

type VulkanSwapchain struct {
	Handle vk.Swapchain
	Desc   gfx.SwapchainDesc
	Images []*VulkanImage
}

func (vc *VulkanContext) surfaceCapabilities() (gfx.SurfaceCapabilities, error) {
	support, err := DeviceQuerySwapchainSupport(vc.Device.PhysicalDevice, vc.Surface)
	if err != nil {
		return gfx.SurfaceCapabilities{}, err
	}

	caps := gfx.SurfaceCapabilities{
		CurrentExtent: fromVkExtent(support.Capabilities.CurrentExtent),
		MinExtent:     fromVkExtent(support.Capabilities.MinImageExtent),
		MaxExtent:     fromVkExtent(support.Capabilities.MaxImageExtent),
		MinImageCount: support.Capabilities.MinImageCount,
		MaxImageCount: support.Capabilities.MaxImageCount,
	}
	for _, f := range support.Formats {
		format, ok := fromVkFormat(f.Format)
		if !ok {
			continue
		}
		space, ok := fromVkColorSpace(f.ColorSpace)
		if !ok {
			continue
		}
		caps.Formats = append(caps.Formats, gfx.SurfaceFormat{Format: format, ColorSpace: space})
	}
	for _, m := range support.PresentModes {
		if mode, ok := fromVkPresentMode(m); ok {
			caps.PresentModes = append(caps.PresentModes, mode)
		}
	}
	return caps, nil
}

// SwapchainCreate builds the chain described by desc, retiring old if set.
// The presentable images come back in swapchain index order with a view each.
func SwapchainCreate(context *VulkanContext, desc gfx.SwapchainDesc, old *VulkanSwapchain) (*VulkanSwapchain, error) {
	support, err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface)
	if err != nil {
		return nil, err
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    desc.ImageCount,
		ImageFormat:      toVkFormat(desc.Format.Format),
		ImageColorSpace:  toVkColorSpace(desc.Format.ColorSpace),
		ImageExtent:      toVkExtent(desc.Extent),
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      toVkPresentMode(desc.PresentMode),
		Clipped:          vk.True,
	}
	if old != nil {
		swapchainCreateInfo.OldSwapchain = old.Handle
	}

	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(context.Device.GraphicsQueueIndex),
			uint32(context.Device.PresentQueueIndex),
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	swapchain := &VulkanSwapchain{Desc: desc}
	err = context.Locks.SafeCall(SwapchainManagement, func() error {
		return resultError("vkCreateSwapchainKHR", vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &swapchain.Handle))
	})
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	var imageCount uint32
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &imageCount, nil); res != vk.Success {
		swapchain.destroy(context)
		return nil, resultError("vkGetSwapchainImagesKHR", res)
	}
	handles := make([]vk.Image, imageCount)
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &imageCount, handles); res != vk.Success {
		swapchain.destroy(context)
		return nil, resultError("vkGetSwapchainImagesKHR", res)
	}

	for _, handle := range handles {
		view, err := ImageViewCreate(context, handle, desc.Format.Format)
		if err != nil {
			swapchain.destroy(context)
			return nil, err
		}
		swapchain.Images = append(swapchain.Images, &VulkanImage{
			Handle: handle,
			View:   view,
			Desc: gfx.ImageDesc{
				Name:   "swapchain",
				Format: desc.Format.Format,
				Extent: desc.Extent,
				Usage:  gfx.UsageColorAttachment,
			},
		})
	}

	core.LogInfo("Swapchain created: %s, %d images, %s.", desc.Extent, imageCount, desc.PresentMode)
	return swapchain, nil
}

// destroy releases the views; the images belong to the swapchain and go
// with it.
func (vs *VulkanSwapchain) destroy(context *VulkanContext) {
	for _, img := range vs.Images {
		img.ImageDestroy(context)
	}
	vs.Images = nil
	if vs.Handle != nil {
		_ = context.Locks.SafeCall(SwapchainManagement, func() error {
			vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
			return nil
		})
		vs.Handle = nil
	}
}

func (vs *VulkanSwapchain) AcquireNextImageIndex(context *VulkanContext, timeout time.Duration, imageAvailableSemaphore vk.Semaphore) (uint32, gfx.Status, error) {
	var index uint32
	var fence vk.Fence
	result := vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, uint64(timeout.Nanoseconds()), imageAvailableSemaphore, fence, &index)
	status, err := swapchainStatus("vkAcquireNextImageKHR", result)
	return index, status, err
}

func (vs *VulkanSwapchain) Present(presentQueue vk.Queue, waits []vk.Semaphore, presentImageIndex uint32) (gfx.Status, error) {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(waits)),
		PWaitSemaphores:    waits,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{presentImageIndex},
	}
	return swapchainStatus("vkQueuePresentKHR", vk.QueuePresent(presentQueue, &presentInfo))
}
