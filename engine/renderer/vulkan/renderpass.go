package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

type VulkanRenderpass struct {
	Handle vk.RenderPass
	Desc   gfx.RenderPassDesc
}

func colorFinalLayout(a gfx.AttachmentDesc) vk.ImageLayout {
	switch {
	case a.Present:
		return vk.ImageLayoutPresentSrc
	case a.Store:
		// Stored attachments are sampled by the passes that consume them.
		return vk.ImageLayoutShaderReadOnlyOptimal
	}
	return vk.ImageLayoutColorAttachmentOptimal
}

func depthFinalLayout(a gfx.AttachmentDesc) vk.ImageLayout {
	if a.Store {
		return vk.ImageLayoutDepthStencilReadOnlyOptimal
	}
	return vk.ImageLayoutDepthStencilAttachmentOptimal
}

func attachmentDescription(a gfx.AttachmentDesc, final vk.ImageLayout) vk.AttachmentDescription {
	initial := vk.ImageLayoutUndefined
	if a.Load == gfx.LoadOpLoad {
		initial = final
	}
	stencilLoad := vk.AttachmentLoadOpDontCare
	if a.Format.HasStencil() {
		stencilLoad = toVkLoadOp(a.Load)
	}
	return vk.AttachmentDescription{
		Format:         toVkFormat(a.Format),
		Samples:        vk.SampleCount1Bit,
		LoadOp:         toVkLoadOp(a.Load),
		StoreOp:        toVkStoreOp(a.Store || a.Present),
		StencilLoadOp:  stencilLoad,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  initial,
		FinalLayout:    final,
	}
}

// RenderpassCreate builds a single subpass render pass: the color
// attachments in order, then the optional depth attachment.
func RenderpassCreate(context *VulkanContext, desc gfx.RenderPassDesc) (*VulkanRenderpass, error) {
	attachmentDescriptions := make([]vk.AttachmentDescription, 0, len(desc.Colors)+1)
	colorReferences := make([]vk.AttachmentReference, 0, len(desc.Colors))
	for i, c := range desc.Colors {
		attachmentDescriptions = append(attachmentDescriptions, attachmentDescription(c, colorFinalLayout(c)))
		colorReferences = append(colorReferences, vk.AttachmentReference{
			Attachment: uint32(i),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		})
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorReferences)),
		PColorAttachments:    colorReferences,
	}

	srcStage := vk.PipelineStageColorAttachmentOutputBit
	dstAccess := vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit
	if desc.Depth != nil {
		attachmentDescriptions = append(attachmentDescriptions, attachmentDescription(*desc.Depth, depthFinalLayout(*desc.Depth)))
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: uint32(len(desc.Colors)),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
		srcStage |= vk.PipelineStageEarlyFragmentTestsBit
		dstAccess |= vk.AccessDepthStencilAttachmentWriteBit
	}

	dependencies := []vk.SubpassDependency{
		{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(srcStage),
			SrcAccessMask: 0,
			DstStageMask:  vk.PipelineStageFlags(srcStage),
			DstAccessMask: vk.AccessFlags(dstAccess),
		},
		{
			// Make the stored results visible to the fragment shaders of
			// the passes waiting on this one.
			SrcSubpass:    0,
			DstSubpass:    vk.SubpassExternal,
			SrcStageMask:  vk.PipelineStageFlags(srcStage),
			SrcAccessMask: vk.AccessFlags(dstAccess),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			DstAccessMask: vk.AccessFlags(vk.AccessShaderReadBit),
		},
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}

	var pRenderPass vk.RenderPass
	err := context.Locks.SafeCall(RenderpassManagement, func() error {
		return resultError("vkCreateRenderPass "+desc.Name, vk.CreateRenderPass(context.Device.LogicalDevice, &renderpassCreateInfo, context.Allocator, &pRenderPass))
	})
	if err != nil {
		return nil, err
	}
	return &VulkanRenderpass{Handle: pRenderPass, Desc: desc}, nil
}

func (vr *VulkanRenderpass) RenderpassDestroy(context *VulkanContext) {
	if vr.Handle != nil {
		vk.DestroyRenderPass(context.Device.LogicalDevice, vr.Handle, context.Allocator)
		vr.Handle = nil
	}
}

// clearValues lays out the clear values in attachment order. Indices past
// the color attachments are depth.
func (vr *VulkanRenderpass) clearValues(values []gfx.ClearValue) []vk.ClearValue {
	out := make([]vk.ClearValue, len(values))
	for i, v := range values {
		if i < len(vr.Desc.Colors) {
			out[i].SetColor(v.Color[:])
		} else {
			out[i].SetDepthStencil(v.Depth, v.Stencil)
		}
	}
	return out
}

func (vr *VulkanRenderpass) RenderpassBegin(commandBuffer *VulkanCommandBuffer, frameBuffer vk.Framebuffer, begin gfx.RenderPassBegin) {
	clearValues := vr.clearValues(begin.Clear)
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: frameBuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: begin.Area.X, Y: begin.Area.Y},
			Extent: toVkExtent(begin.Area.Extent),
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}
