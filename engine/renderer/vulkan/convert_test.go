package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

func TestFormatMapping(t *testing.T) {
	for f := range formats {
		back, ok := fromVkFormat(toVkFormat(f))
		assert.True(t, ok, f.String())
		assert.Equal(t, f, back)
	}
	_, ok := fromVkFormat(vk.FormatR8Unorm)
	assert.False(t, ok)
}

func TestPresentModeMapping(t *testing.T) {
	assert.Equal(t, vk.PresentModeMailbox, toVkPresentMode(gfx.PresentModeMailbox))
	assert.Equal(t, vk.PresentModeFifo, toVkPresentMode(gfx.PresentMode(42)))

	mode, ok := fromVkPresentMode(vk.PresentModeImmediate)
	assert.True(t, ok)
	assert.Equal(t, gfx.PresentModeImmediate, mode)
}

func TestUsageAndAspect(t *testing.T) {
	usage := toVkUsage(gfx.UsageColorAttachment | gfx.UsageSampled)
	assert.Equal(t, vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit|vk.ImageUsageSampledBit), usage)

	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectColorBit), aspectOf(gfx.FormatR8G8B8A8Unorm))
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectDepthBit), aspectOf(gfx.FormatD32Sfloat))
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectDepthBit|vk.ImageAspectStencilBit), aspectOf(gfx.FormatD24UnormS8Uint))
}

func TestStageBitsMatch(t *testing.T) {
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit), toVkStage(gfx.StageColorAttachmentOutput))
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), toVkStage(gfx.StageFragmentShader))
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit), toVkStage(gfx.StageEarlyFragmentTests))
}

func TestRenderpassLayouts(t *testing.T) {
	assert.Equal(t, vk.ImageLayoutPresentSrc, colorFinalLayout(gfx.AttachmentDesc{Present: true, Store: true}))
	assert.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, colorFinalLayout(gfx.AttachmentDesc{Store: true}))

	d := attachmentDescription(gfx.AttachmentDesc{Format: gfx.FormatD24UnormS8Uint, Load: gfx.LoadOpClear}, vk.ImageLayoutDepthStencilAttachmentOptimal)
	assert.Equal(t, vk.AttachmentLoadOpClear, d.StencilLoadOp)
	assert.Equal(t, vk.ImageLayoutUndefined, d.InitialLayout)
	assert.Equal(t, vk.AttachmentStoreOpDontCare, d.StoreOp)
}
