package platform

import (
	"runtime"
	"sync"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Platform owns the application window. It satisfies gfx.Window for the
// presentation surface and reports resizes and quit requests on the bus.
type Platform struct {
	Window *glfw.Window

	events  *core.EventBus
	surface gfx.Surface

	mu         sync.RWMutex
	extent     gfx.Extent
	generation uint64
}

func New(events *core.EventBus) *Platform {
	return &Platform{events: events}
}

func (p *Platform) Startup(applicationName string, x, y, width, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		glfw.Terminate()
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetCloseCallback(p.closeCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	w, h := p.Window.GetFramebufferSize()
	p.onFramebufferSize(w, h)
	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events. It returns false once the
// window has been asked to close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return !p.Window.ShouldClose()
}

// WaitMessages blocks until an event arrives or the timeout expires. Used
// while the window is minimized.
func (p *Platform) WaitMessages(timeout time.Duration) {
	glfw.WaitEventsTimeout(timeout.Seconds())
}

func (p *Platform) GetRequiredExtensionNames() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

func (p *Platform) CreateWindowSurface(instance interface{}) (uintptr, error) {
	return p.Window.CreateWindowSurface(instance, nil)
}

// BindSurface records the backend handle of the window surface.
func (p *Platform) BindSurface(s gfx.Surface) {
	p.surface = s
}

func (p *Platform) Surface() gfx.Surface {
	return p.surface
}

func (p *Platform) FramebufferSize() gfx.Extent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.extent
}

func (p *Platform) SizeGeneration() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.generation
}

func (p *Platform) onFramebufferSize(width, height int) {
	extent := gfx.Extent{Width: uint32(width), Height: uint32(height)}

	p.mu.Lock()
	if extent == p.extent {
		p.mu.Unlock()
		return
	}
	p.extent = extent
	p.generation++
	p.mu.Unlock()

	core.LogDebug("window resized to %s", extent)
	if p.events != nil {
		p.events.Fire(core.EVENT_CODE_RESIZED, p, core.EventContext{
			U32: [4]uint32{extent.Width, extent.Height},
		})
	}
}

func (p *Platform) requestQuit() {
	if p.events != nil {
		p.events.Fire(core.EVENT_CODE_APPLICATION_QUIT, p, core.EventContext{})
	}
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		w.SetShouldClose(true)
		p.requestQuit()
	}
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.onFramebufferSize(width, height)
}

func (p *Platform) closeCallback(w *glfw.Window) {
	p.requestQuit()
}
