package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framegraph/engine/core"
)

// SurfaceWindow is what the bootstrap needs from the platform window.
type SurfaceWindow interface {
	GetRequiredExtensionNames() []string
	CreateWindowSurface(instance interface{}) (uintptr, error)
}

type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice
	Locks  *VulkanLockPool
}

// NewContext loads the Vulkan loader through glfw, creates the instance, the
// window surface and the logical device, and returns a Backend ready to be
// handed to the frame graph.
func NewContext(window SurfaceWindow, appName string, validation bool) (*Backend, error) {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return nil, fmt.Errorf("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return nil, err
	}

	context := &VulkanContext{
		Allocator: nil,
		Device:    &VulkanDevice{},
		Locks:     NewVulkanLockPool(),
	}
	if err := context.createInstance(window, appName, validation); err != nil {
		return nil, err
	}

	if validation {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogError("vk.CreateDebugReportCallback failed with %s", err)
			context.Destroy()
			return nil, err
		}
		context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := window.CreateWindowSurface(context.Instance)
	if err != nil {
		context.Destroy()
		return nil, fmt.Errorf("vulkan surface creation failed: %w", err)
	}
	context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(context); err != nil {
		context.Destroy()
		return nil, err
	}
	return newBackend(context), nil
}

func (vc *VulkanContext) createInstance(window SurfaceWindow, appName string, validation bool) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("FrameGraph"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := []string{"VK_KHR_surface"}
	requiredExtensions = append(requiredExtensions, window.GetRequiredExtensionNames()...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	requiredLayers := []string{}
	if validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		requiredLayers = append(requiredLayers, "VK_LAYER_KHRONOS_validation")
		if err := checkLayers(requiredLayers); err != nil {
			return err
		}
	}
	core.LogDebug("Required extensions: %v", requiredExtensions)

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(requiredLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredLayers)

	if res := vk.CreateInstance(&createInfo, vc.Allocator, &vc.Instance); res != vk.Success {
		err := resultError("vkCreateInstance", res)
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vc.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan Instance created.")
	return nil
}

func checkLayers(required []string) error {
	core.LogInfo("Validation layers enabled. Enumerating...")

	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return resultError("vkEnumerateInstanceLayerProperties", res)
	}
	available := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, available); res != vk.Success {
		return resultError("vkEnumerateInstanceLayerProperties", res)
	}

	for _, name := range required {
		found := false
		for j := range available {
			available[j].Deref()
			if name == cString(available[j].LayerName[:]) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("required validation layer is missing: %s", name)
		}
	}
	core.LogInfo("All required validation layers are present.")
	return nil
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that
// has all of propertyFlags, or -1.
func (vc *VulkanContext) FindMemoryIndex(typeFilter, propertyFlags uint32) int32 {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (uint32(memoryProperties.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}

// Destroy tears down the device, the surface and the instance, in that order.
func (vc *VulkanContext) Destroy() {
	if vc.Device != nil && vc.Device.LogicalDevice != nil {
		DeviceDestroy(vc)
	}
	if vc.Surface != nil {
		vk.DestroySurface(vc.Instance, vc.Surface, vc.Allocator)
		vc.Surface = nil
	}
	if vc.debugMessenger != nil {
		vk.DestroyDebugReportCallback(vc.Instance, vc.debugMessenger, vc.Allocator)
		vc.debugMessenger = nil
	}
	if vc.Instance != nil {
		vk.DestroyInstance(vc.Instance, vc.Allocator)
		vc.Instance = nil
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
