package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Desc   gfx.ImageDesc

	// Handle of View in the backend view table.
	ViewID gfx.ImageView
	// Swapchain images are owned by their swapchain: only the view is ours.
	Swapchain gfx.Swapchain
}

// ImageCreate allocates device local storage for desc and creates its view.
func ImageCreate(context *VulkanContext, desc gfx.ImageDesc) (*VulkanImage, error) {
	image := &VulkanImage{Desc: desc}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  desc.Extent.Width,
			Height: desc.Extent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        toVkFormat(desc.Format),
		Tiling:        vk.ImageTilingOptimal,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         toVkUsage(desc.Usage),
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}
	if res := vk.CreateImage(context.Device.LogicalDevice, &imageCreateInfo, context.Allocator, &image.Handle); res != vk.Success {
		return nil, resultError(fmt.Sprintf("vkCreateImage %s", desc.Name), res)
	}

	var memoryRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, image.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryType := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, uint32(vk.MemoryPropertyDeviceLocalBit))
	if memoryType == -1 {
		image.ImageDestroy(context)
		return nil, fmt.Errorf("image %s: no suitable memory type: %w", desc.Name, core.ErrOutOfMemory)
	}

	memoryAllocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &memoryAllocateInfo, context.Allocator, &image.Memory); res != vk.Success {
		image.ImageDestroy(context)
		return nil, resultError(fmt.Sprintf("vkAllocateMemory %s", desc.Name), res)
	}
	if res := vk.BindImageMemory(context.Device.LogicalDevice, image.Handle, image.Memory, 0); res != vk.Success {
		image.ImageDestroy(context)
		return nil, resultError(fmt.Sprintf("vkBindImageMemory %s", desc.Name), res)
	}

	view, err := ImageViewCreate(context, image.Handle, desc.Format)
	if err != nil {
		image.ImageDestroy(context)
		return nil, err
	}
	image.View = view
	return image, nil
}

func ImageViewCreate(context *VulkanContext, image vk.Image, format gfx.Format) (vk.ImageView, error) {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   toVkFormat(format),
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectOf(format),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var view vk.ImageView
	if res := vk.CreateImageView(context.Device.LogicalDevice, &viewCreateInfo, context.Allocator, &view); res != vk.Success {
		err := resultError("vkCreateImageView", res)
		core.LogError(err.Error())
		return nil, err
	}
	return view, nil
}

func (vi *VulkanImage) ImageDestroy(context *VulkanContext) {
	if vi.View != nil {
		vk.DestroyImageView(context.Device.LogicalDevice, vi.View, context.Allocator)
		vi.View = nil
	}
	if vi.Swapchain != 0 {
		return
	}
	if vi.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, vi.Memory, context.Allocator)
		vi.Memory = nil
	}
	if vi.Handle != nil {
		vk.DestroyImage(context.Device.LogicalDevice, vi.Handle, context.Allocator)
		vi.Handle = nil
	}
}
