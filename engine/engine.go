package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spaghettifunk/framegraph/engine/config"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/platform"
	"github.com/spaghettifunk/framegraph/engine/renderer"
	"github.com/spaghettifunk/framegraph/engine/renderer/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// How long the loop sleeps on window events while minimized.
const suspendedWait = 100 * time.Millisecond

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    bool
	isSuspended  bool
	events       *core.EventBus
	platform     *platform.Platform
	renderer     *renderer.Renderer
	watcher      *config.Watcher
	// Holds at most the latest configuration read by the watcher.
	reloads chan *config.Config
	// A failure inside an event handler that must stop the loop.
	fatal    error
	width    uint32
	height   uint32
	clock    *core.Clock
	lastTime time.Duration
}

func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, errors.New("engine: game without an application config")
	}
	if g.FnRender == nil {
		return nil, errors.New("engine: game without a render function")
	}
	events := core.NewEventBus()
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		clock:        core.NewClock(),
		events:       events,
		platform:     platform.New(events),
		reloads:      make(chan *config.Config, 1),
		isRunning:    true,
		isSuspended:  false,
		width:        g.ApplicationConfig.StartWidth,
		height:       g.ApplicationConfig.StartHeight,
	}, nil
}

func (e *Engine) registerEvents() {
	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)
	e.events.Register(core.EVENT_CODE_CONFIG_RELOADED, e, e.onConfigReloaded)
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	app := e.gameInstance.ApplicationConfig
	core.SetLogLevel(app.LogLevel)

	e.registerEvents()

	if err := e.platform.Startup(app.Name, app.StartPosX, app.StartPosY, app.StartWidth, app.StartHeight); err != nil {
		return err
	}

	backend, err := vulkan.NewContext(e.platform, app.Name, app.Validation)
	if err != nil {
		return err
	}
	e.platform.BindSurface(backend.Surface())

	r, err := renderer.New(backend, e.platform, app.Renderer)
	if err != nil {
		backend.Destroy()
		return err
	}
	e.renderer = r

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}

	root, err := e.buildGraph(app.Graph)
	if err != nil {
		return err
	}
	if err := e.renderer.SetGraph(root); err != nil {
		return err
	}

	size := e.platform.FramebufferSize()
	e.width, e.height = size.Width, size.Height
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	if app.ConfigPath != "" {
		w, err := config.Watch(app.ConfigPath, e.queueReload)
		if err != nil {
			core.LogWarn("config hot reload disabled: %s", err)
		} else {
			e.watcher = w
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) buildGraph(graph config.GraphConfig) (*framegraph.RenderNode, error) {
	var funcs config.RenderFuncs
	if e.gameInstance.FnPasses != nil {
		funcs = e.gameInstance.FnPasses(graph)
	}
	return graph.Build(funcs)
}

// Run drives the loop until the window closes, a quit event arrives, ctx is
// done, or a frame fails fatally.
func (e *Engine) Run(ctx context.Context) error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		if !e.platform.PumpMessages() {
			e.isRunning = false
			break
		}
		if e.isSuspended {
			e.platform.WaitMessages(suspendedWait)
		}
		if err := e.frame(ctx); err != nil {
			return err
		}
	}
	return nil
}

// frame runs one tick: pending reloads, game update, then the frame graph.
func (e *Engine) frame(ctx context.Context) error {
	select {
	case <-ctx.Done():
		core.LogInfo("context done, shutting down")
		e.isRunning = false
		return nil
	case cfg := <-e.reloads:
		e.events.Fire(core.EVENT_CODE_CONFIG_RELOADED, e, core.EventContext{Payload: cfg})
	default:
	}
	if e.fatal != nil {
		e.isRunning = false
		return e.fatal
	}
	if e.isSuspended || !e.isRunning {
		return nil
	}

	e.clock.Update()
	currentTime := e.clock.Elapsed()
	delta := (currentTime - e.lastTime).Seconds()

	if e.gameInstance.FnUpdate != nil {
		if err := e.gameInstance.FnUpdate(delta); err != nil {
			core.LogError("game update failed, shutting down: %s", err)
			e.isRunning = false
			return err
		}
	}

	scene, err := e.gameInstance.FnRender(delta)
	if err != nil {
		core.LogError("game render failed, shutting down: %s", err)
		e.isRunning = false
		return err
	}

	if err := e.renderer.DrawFrame(ctx, scene); err != nil {
		if core.IsFatal(err) {
			core.LogError("frame failed, shutting down: %s", err)
			e.isRunning = false
			return err
		}
		core.LogWarn("frame dropped: %s", err)
	}

	e.lastTime = currentTime
	return nil
}

// queueReload runs on the watcher goroutine. An unread configuration is
// replaced by the newer one.
func (e *Engine) queueReload(cfg *config.Config) {
	for {
		select {
		case e.reloads <- cfg:
			return
		default:
		}
		select {
		case <-e.reloads:
		default:
		}
	}
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	var errs []error
	if e.watcher != nil {
		errs = append(errs, e.watcher.Close())
		e.watcher = nil
	}
	if e.gameInstance.FnShutdown != nil {
		errs = append(errs, e.gameInstance.FnShutdown())
	}
	if e.renderer != nil {
		errs = append(errs, e.renderer.Shutdown())
		e.renderer = nil
	}
	errs = append(errs, e.platform.Shutdown())
	return errors.Join(errs...)
}

// GetFramebufferSize returns the width and height (in this order) of the
// application framebuffer.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

// Stats of the frame graph currently drawn.
func (e *Engine) Stats() framegraph.Stats {
	if e.renderer == nil {
		return framegraph.Stats{}
	}
	return e.renderer.Stats()
}

func (e *Engine) onEvent(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	width, height := data.U32[0], data.U32[1]
	if width == e.width && height == e.height {
		return false
	}
	e.width, e.height = width, height
	core.LogDebug("window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("window minimized, suspending application.")
		e.isSuspended = true
		return true
	}
	if e.isSuspended {
		core.LogInfo("window restored, resuming application.")
		e.isSuspended = false
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError("game resize: %s", err)
		}
	}
	// The surface notices the new size itself on the next acquire.
	return false
}

func (e *Engine) onConfigReloaded(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	cfg, ok := data.Payload.(*config.Config)
	if !ok || cfg == nil {
		core.LogError("wrong payload %T for config reload", data.Payload)
		return false
	}
	app := e.gameInstance.ApplicationConfig

	graph := cfg.Passes
	if len(graph) == 0 {
		graph = app.Graph
	}
	root, err := e.buildGraph(graph)
	if err != nil {
		core.LogError("reloaded graph rejected, keeping the current one: %s", err)
		return true
	}

	core.SetLogLevel(cfg.LogLevel())
	if err := e.renderer.Reconfigure(cfg.Options(), root); err != nil {
		if core.IsFatal(err) {
			e.fatal = fmt.Errorf("applying reloaded config: %w", err)
			return true
		}
		core.LogError("applying reloaded config: %s", err)
		return true
	}
	app.LogLevel = cfg.LogLevel()
	app.Renderer = cfg.Options()
	app.Graph = graph
	return true
}
