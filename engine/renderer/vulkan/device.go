package vulkan

import (
	"fmt"
	"runtime"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	GraphicsQueueIndex int32
	PresentQueueIndex  int32
	TransferQueueIndex int32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue
	TransferQueue vk.Queue

	// One resettable pool per queue family.
	CommandPools map[uint32]vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

type VulkanPhysicalDeviceRequirements struct {
	Graphics             bool
	Present              bool
	Transfer             bool
	DeviceExtensionNames []string
	DiscreteGPU          bool
}

type VulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
	TransferFamilyIndex int32
}

func (d *VulkanDevice) queueFamily(kind gfx.QueueKind) uint32 {
	switch kind {
	case gfx.QueuePresent:
		return uint32(d.PresentQueueIndex)
	case gfx.QueueTransfer:
		return uint32(d.TransferQueueIndex)
	}
	return uint32(d.GraphicsQueueIndex)
}

func (d *VulkanDevice) queue(kind gfx.QueueKind) vk.Queue {
	switch kind {
	case gfx.QueuePresent:
		return d.PresentQueue
	case gfx.QueueTransfer:
		return d.TransferQueue
	}
	return d.GraphicsQueue
}

func DeviceCreate(context *VulkanContext) error {
	if err := SelectPhysicalDevice(context); err != nil {
		return err
	}

	core.LogInfo("Creating logical device...")

	// NOTE: Do not create additional queues for shared indices.
	indices := []uint32{uint32(context.Device.GraphicsQueueIndex)}
	for _, idx := range []int32{context.Device.PresentQueueIndex, context.Device.TransferQueueIndex} {
		shared := false
		for _, existing := range indices {
			if existing == uint32(idx) {
				shared = true
			}
		}
		if !shared {
			indices = append(indices, uint32(idx))
		}
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: indices[i],
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if hasDeviceExtension(context.Device.PhysicalDevice, "VK_KHR_portability_subset") {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	if res := vk.CreateDevice(context.Device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &context.Device.LogicalDevice); res != vk.Success {
		err := resultError("vkCreateDevice", res)
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Logical device created.")

	vk.GetDeviceQueue(context.Device.LogicalDevice, uint32(context.Device.GraphicsQueueIndex), 0, &context.Device.GraphicsQueue)
	vk.GetDeviceQueue(context.Device.LogicalDevice, uint32(context.Device.PresentQueueIndex), 0, &context.Device.PresentQueue)
	vk.GetDeviceQueue(context.Device.LogicalDevice, uint32(context.Device.TransferQueueIndex), 0, &context.Device.TransferQueue)
	core.LogInfo("Queues obtained.")

	context.Device.CommandPools = make(map[uint32]vk.CommandPool, len(indices))
	for _, family := range indices {
		context.Locks.SetQueueFamily(family)

		poolCreateInfo := vk.CommandPoolCreateInfo{
			SType:            vk.StructureTypeCommandPoolCreateInfo,
			QueueFamilyIndex: family,
			Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		}
		var pool vk.CommandPool
		if res := vk.CreateCommandPool(context.Device.LogicalDevice, &poolCreateInfo, context.Allocator, &pool); res != vk.Success {
			return resultError("vkCreateCommandPool", res)
		}
		context.Device.CommandPools[family] = pool
	}
	core.LogInfo("Command pools created.")

	return nil
}

func DeviceDestroy(context *VulkanContext) {
	context.Device.GraphicsQueue = nil
	context.Device.PresentQueue = nil
	context.Device.TransferQueue = nil

	core.LogInfo("Destroying command pools...")
	for family, pool := range context.Device.CommandPools {
		vk.DestroyCommandPool(context.Device.LogicalDevice, pool, context.Allocator)
		delete(context.Device.CommandPools, family)
	}

	core.LogInfo("Destroying logical device...")
	if context.Device.LogicalDevice != nil {
		vk.DestroyDevice(context.Device.LogicalDevice, context.Allocator)
		context.Device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	context.Device.PhysicalDevice = nil
	context.Device.GraphicsQueueIndex = -1
	context.Device.PresentQueueIndex = -1
	context.Device.TransferQueueIndex = -1
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (*VulkanSwapchainSupportInfo, error) {
	supportInfo := &VulkanSwapchainSupportInfo{}

	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &supportInfo.Capabilities); res != vk.Success {
		return nil, resultError("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", res)
	}
	supportInfo.Capabilities.Deref()
	supportInfo.Capabilities.CurrentExtent.Deref()
	supportInfo.Capabilities.MinImageExtent.Deref()
	supportInfo.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return nil, resultError("vkGetPhysicalDeviceSurfaceFormatsKHR", res)
	}
	if formatCount != 0 {
		supportInfo.Formats = make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, supportInfo.Formats); res != vk.Success {
			return nil, resultError("vkGetPhysicalDeviceSurfaceFormatsKHR", res)
		}
		for i := range supportInfo.Formats {
			supportInfo.Formats[i].Deref()
		}
	}

	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); res != vk.Success {
		return nil, resultError("vkGetPhysicalDeviceSurfacePresentModesKHR", res)
	}
	if presentModeCount != 0 {
		supportInfo.PresentModes = make([]vk.PresentMode, presentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, supportInfo.PresentModes); res != vk.Success {
			return nil, resultError("vkGetPhysicalDeviceSurfacePresentModesKHR", res)
		}
	}
	return supportInfo, nil
}

func SelectPhysicalDevice(context *VulkanContext) error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return resultError("vkEnumeratePhysicalDevices", res)
	}
	if physicalDeviceCount == 0 {
		return fmt.Errorf("no devices which support Vulkan were found")
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return resultError("vkEnumeratePhysicalDevices", res)
	}

	requirements := VulkanPhysicalDeviceRequirements{
		Graphics:             true,
		Present:              true,
		Transfer:             true,
		DiscreteGPU:          runtime.GOOS != "darwin",
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}

	// A discrete GPU is preferred; fall back to anything that works.
	for _, discrete := range []bool{requirements.DiscreteGPU, false} {
		requirements.DiscreteGPU = discrete
		for _, physicalDevice := range physicalDevices {
			var properties vk.PhysicalDeviceProperties
			vk.GetPhysicalDeviceProperties(physicalDevice, &properties)
			properties.Deref()

			var features vk.PhysicalDeviceFeatures
			vk.GetPhysicalDeviceFeatures(physicalDevice, &features)
			features.Deref()

			var memory vk.PhysicalDeviceMemoryProperties
			vk.GetPhysicalDeviceMemoryProperties(physicalDevice, &memory)
			memory.Deref()

			queueInfo, ok := PhysicalDeviceMeetsRequirements(physicalDevice, context.Surface, &properties, &requirements)
			if !ok {
				continue
			}

			core.LogInfo("Selected device: '%s'.", cString(properties.DeviceName[:]))
			core.LogInfo(
				"Vulkan API version: %d.%d.%d",
				vk.Version.Major(vk.Version(properties.ApiVersion)),
				vk.Version.Minor(vk.Version(properties.ApiVersion)),
				vk.Version.Patch(vk.Version(properties.ApiVersion)),
			)

			context.Device.PhysicalDevice = physicalDevice
			context.Device.GraphicsQueueIndex = queueInfo.GraphicsFamilyIndex
			context.Device.PresentQueueIndex = queueInfo.PresentFamilyIndex
			context.Device.TransferQueueIndex = queueInfo.TransferFamilyIndex
			context.Device.Properties = properties
			context.Device.Features = features
			context.Device.Memory = memory
			return nil
		}
	}
	return fmt.Errorf("no physical devices were found which meet the requirements")
}

func PhysicalDeviceMeetsRequirements(device vk.PhysicalDevice, surface vk.Surface, properties *vk.PhysicalDeviceProperties, requirements *VulkanPhysicalDeviceRequirements) (VulkanPhysicalDeviceQueueFamilyInfo, bool) {
	outQueueInfo := VulkanPhysicalDeviceQueueFamilyInfo{
		GraphicsFamilyIndex: -1,
		PresentFamilyIndex:  -1,
		TransferFamilyIndex: -1,
	}

	if requirements.DiscreteGPU && properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
		core.LogDebug("Device is not a discrete GPU, and one is required. Skipping.")
		return outQueueInfo, false
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	minTransferScore := 255
	for i := range queueFamilies {
		queueFamilies[i].Deref()
		currentTransferScore := 0

		if vk.QueueFlagBits(queueFamilies[i].QueueFlags)&vk.QueueGraphicsBit != 0 {
			if outQueueInfo.GraphicsFamilyIndex < 0 {
				outQueueInfo.GraphicsFamilyIndex = int32(i)
			}
			currentTransferScore++
		}
		if vk.QueueFlagBits(queueFamilies[i].QueueFlags)&vk.QueueComputeBit != 0 {
			currentTransferScore++
		}
		// The lowest score is the most likely to be a dedicated transfer queue.
		if vk.QueueFlagBits(queueFamilies[i].QueueFlags)&vk.QueueTransferBit != 0 && currentTransferScore <= minTransferScore {
			minTransferScore = currentTransferScore
			outQueueInfo.TransferFamilyIndex = int32(i)
		}

		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent); res != vk.Success {
			return outQueueInfo, false
		}
		if supportsPresent == vk.True && outQueueInfo.PresentFamilyIndex < 0 {
			outQueueInfo.PresentFamilyIndex = int32(i)
		}
	}

	if (requirements.Graphics && outQueueInfo.GraphicsFamilyIndex < 0) ||
		(requirements.Present && outQueueInfo.PresentFamilyIndex < 0) ||
		(requirements.Transfer && outQueueInfo.TransferFamilyIndex < 0) {
		return outQueueInfo, false
	}
	core.LogDebug("Graphics Family Index: %d", outQueueInfo.GraphicsFamilyIndex)
	core.LogDebug("Present Family Index:  %d", outQueueInfo.PresentFamilyIndex)
	core.LogDebug("Transfer Family Index: %d", outQueueInfo.TransferFamilyIndex)

	support, err := DeviceQuerySwapchainSupport(device, surface)
	if err != nil || len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		core.LogInfo("Required swapchain support not present, skipping device.")
		return outQueueInfo, false
	}

	for _, name := range requirements.DeviceExtensionNames {
		if !hasDeviceExtension(device, name) {
			core.LogInfo("Required extension not found: '%s', skipping device.", name)
			return outQueueInfo, false
		}
	}
	return outQueueInfo, true
}

func hasDeviceExtension(device vk.PhysicalDevice, name string) bool {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success || count == 0 {
		return false
	}
	available := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		if cString(available[i].ExtensionName[:]) == name {
			return true
		}
	}
	return false
}
