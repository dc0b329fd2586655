package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

var resultNames = map[vk.Result]string{
	vk.Success:                          "VK_SUCCESS",
	vk.NotReady:                         "VK_NOT_READY",
	vk.Timeout:                          "VK_TIMEOUT",
	vk.EventSet:                         "VK_EVENT_SET",
	vk.EventReset:                       "VK_EVENT_RESET",
	vk.Incomplete:                       "VK_INCOMPLETE",
	vk.Suboptimal:                       "VK_SUBOPTIMAL_KHR",
	vk.ErrorOutOfHostMemory:             "VK_ERROR_OUT_OF_HOST_MEMORY",
	vk.ErrorOutOfDeviceMemory:           "VK_ERROR_OUT_OF_DEVICE_MEMORY",
	vk.ErrorInitializationFailed:        "VK_ERROR_INITIALIZATION_FAILED",
	vk.ErrorDeviceLost:                  "VK_ERROR_DEVICE_LOST",
	vk.ErrorMemoryMapFailed:             "VK_ERROR_MEMORY_MAP_FAILED",
	vk.ErrorLayerNotPresent:             "VK_ERROR_LAYER_NOT_PRESENT",
	vk.ErrorExtensionNotPresent:         "VK_ERROR_EXTENSION_NOT_PRESENT",
	vk.ErrorFeatureNotPresent:           "VK_ERROR_FEATURE_NOT_PRESENT",
	vk.ErrorIncompatibleDriver:          "VK_ERROR_INCOMPATIBLE_DRIVER",
	vk.ErrorTooManyObjects:              "VK_ERROR_TOO_MANY_OBJECTS",
	vk.ErrorFormatNotSupported:          "VK_ERROR_FORMAT_NOT_SUPPORTED",
	vk.ErrorFragmentedPool:              "VK_ERROR_FRAGMENTED_POOL",
	vk.ErrorSurfaceLost:                 "VK_ERROR_SURFACE_LOST_KHR",
	vk.ErrorNativeWindowInUse:           "VK_ERROR_NATIVE_WINDOW_IN_USE_KHR",
	vk.ErrorOutOfDate:                   "VK_ERROR_OUT_OF_DATE_KHR",
	vk.ErrorIncompatibleDisplay:         "VK_ERROR_INCOMPATIBLE_DISPLAY_KHR",
	vk.ErrorOutOfPoolMemory:             "VK_ERROR_OUT_OF_POOL_MEMORY",
	vk.ErrorInvalidExternalHandle:       "VK_ERROR_INVALID_EXTERNAL_HANDLE",
	vk.ErrorFragmentation:               "VK_ERROR_FRAGMENTATION",
	vk.ErrorFullScreenExclusiveModeLost: "VK_ERROR_FULL_SCREEN_EXCLUSIVE_MODE_LOST_EXT",
	vk.ErrorUnknown:                     "VK_ERROR_UNKNOWN",
}

func VulkanResultString(result vk.Result) string {
	if n, ok := resultNames[result]; ok {
		return n
	}
	return fmt.Sprintf("VkResult(%d)", int32(result))
}

// resultError turns a failed call into one of the engine sentinel errors.
// Device loss, timeouts and memory exhaustion keep their identity so that
// callers can tell them apart with errors.Is.
func resultError(op string, res vk.Result) error {
	switch res {
	case vk.Success:
		return nil
	case vk.ErrorDeviceLost:
		return fmt.Errorf("%s: %w", op, core.ErrDeviceLost)
	case vk.Timeout, vk.NotReady:
		return fmt.Errorf("%s: %w", op, core.ErrTimeout)
	case vk.ErrorOutOfHostMemory, vk.ErrorOutOfDeviceMemory, vk.ErrorOutOfPoolMemory:
		return fmt.Errorf("%s: %s: %w", op, VulkanResultString(res), core.ErrOutOfMemory)
	}
	return fmt.Errorf("%s failed with %s: %w", op, VulkanResultString(res), core.ErrUnknown)
}

// swapchainStatus maps the results of acquire and present. Out of date and
// suboptimal are statuses, not errors.
func swapchainStatus(op string, res vk.Result) (gfx.Status, error) {
	switch res {
	case vk.Success:
		return gfx.StatusSuccess, nil
	case vk.Suboptimal:
		return gfx.StatusSuboptimal, nil
	case vk.ErrorOutOfDate:
		return gfx.StatusOutOfDate, nil
	}
	return gfx.StatusSuccess, resultError(op, res)
}

var end = "\x00"
var endChar byte = '\x00'

func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func VulkanSafeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = VulkanSafeString(list[i])
	}
	return out
}

// FindFirstZeroInByteArray returns the length of a NUL terminated name.
func FindFirstZeroInByteArray(arr []byte) int {
	for i, b := range arr {
		if b == 0 {
			return i
		}
	}
	return len(arr)
}

// cString converts a fixed size name array as returned by the driver.
func cString(arr []byte) string {
	return string(arr[:FindFirstZeroInByteArray(arr)])
}
