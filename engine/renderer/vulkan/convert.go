package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

var formats = map[gfx.Format]vk.Format{
	gfx.FormatUndefined:          vk.FormatUndefined,
	gfx.FormatR8G8B8A8Unorm:      vk.FormatR8g8b8a8Unorm,
	gfx.FormatR8G8B8A8Srgb:       vk.FormatR8g8b8a8Srgb,
	gfx.FormatB8G8R8A8Unorm:      vk.FormatB8g8r8a8Unorm,
	gfx.FormatB8G8R8A8Srgb:       vk.FormatB8g8r8a8Srgb,
	gfx.FormatR16G16B16A16Sfloat: vk.FormatR16g16b16a16Sfloat,
	gfx.FormatR32G32B32A32Sfloat: vk.FormatR32g32b32a32Sfloat,
	gfx.FormatR32Sfloat:          vk.FormatR32Sfloat,
	gfx.FormatD32Sfloat:          vk.FormatD32Sfloat,
	gfx.FormatD32SfloatS8Uint:    vk.FormatD32SfloatS8Uint,
	gfx.FormatD24UnormS8Uint:     vk.FormatD24UnormS8Uint,
}

func toVkFormat(f gfx.Format) vk.Format {
	return formats[f]
}

// fromVkFormat reports false for formats the engine does not know about.
func fromVkFormat(f vk.Format) (gfx.Format, bool) {
	for g, v := range formats {
		if v == f {
			return g, true
		}
	}
	return gfx.FormatUndefined, false
}

var presentModes = map[gfx.PresentMode]vk.PresentMode{
	gfx.PresentModeImmediate:   vk.PresentModeImmediate,
	gfx.PresentModeMailbox:     vk.PresentModeMailbox,
	gfx.PresentModeFifo:        vk.PresentModeFifo,
	gfx.PresentModeFifoRelaxed: vk.PresentModeFifoRelaxed,
}

func toVkPresentMode(m gfx.PresentMode) vk.PresentMode {
	if v, ok := presentModes[m]; ok {
		return v
	}
	return vk.PresentModeFifo
}

func fromVkPresentMode(m vk.PresentMode) (gfx.PresentMode, bool) {
	for g, v := range presentModes {
		if v == m {
			return g, true
		}
	}
	return gfx.PresentModeFifo, false
}

func toVkColorSpace(c gfx.ColorSpace) vk.ColorSpace {
	if c == gfx.ColorSpaceExtendedSrgbLinear {
		return vk.ColorSpaceExtendedSrgbLinear
	}
	return vk.ColorSpaceSrgbNonlinear
}

func fromVkColorSpace(c vk.ColorSpace) (gfx.ColorSpace, bool) {
	switch c {
	case vk.ColorSpaceSrgbNonlinear:
		return gfx.ColorSpaceSrgbNonlinear, true
	case vk.ColorSpaceExtendedSrgbLinear:
		return gfx.ColorSpaceExtendedSrgbLinear, true
	}
	return gfx.ColorSpaceSrgbNonlinear, false
}

func toVkUsage(u gfx.ImageUsage) vk.ImageUsageFlags {
	var flags vk.ImageUsageFlagBits
	if u&gfx.UsageColorAttachment != 0 {
		flags |= vk.ImageUsageColorAttachmentBit
	}
	if u&gfx.UsageDepthStencilAttachment != 0 {
		flags |= vk.ImageUsageDepthStencilAttachmentBit
	}
	if u&gfx.UsageSampled != 0 {
		flags |= vk.ImageUsageSampledBit
	}
	if u&gfx.UsageTransferSrc != 0 {
		flags |= vk.ImageUsageTransferSrcBit
	}
	if u&gfx.UsageTransferDst != 0 {
		flags |= vk.ImageUsageTransferDstBit
	}
	return vk.ImageUsageFlags(flags)
}

func aspectOf(f gfx.Format) vk.ImageAspectFlags {
	switch {
	case f.HasStencil():
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit | vk.ImageAspectStencilBit)
	case f.IsDepth():
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

func toVkLoadOp(op gfx.LoadOp) vk.AttachmentLoadOp {
	switch op {
	case gfx.LoadOpClear:
		return vk.AttachmentLoadOpClear
	case gfx.LoadOpLoad:
		return vk.AttachmentLoadOpLoad
	}
	return vk.AttachmentLoadOpDontCare
}

func toVkStoreOp(store bool) vk.AttachmentStoreOp {
	if store {
		return vk.AttachmentStoreOpStore
	}
	return vk.AttachmentStoreOpDontCare
}

// The gfx stage bits share their values with VkPipelineStageFlagBits.
func toVkStage(s gfx.PipelineStage) vk.PipelineStageFlags {
	return vk.PipelineStageFlags(s)
}

func toVkExtent(e gfx.Extent) vk.Extent2D {
	return vk.Extent2D{Width: e.Width, Height: e.Height}
}

func fromVkExtent(e vk.Extent2D) gfx.Extent {
	return gfx.Extent{Width: e.Width, Height: e.Height}
}
