package engine

import (
	"github.com/spaghettifunk/framegraph/engine/config"
	"github.com/spaghettifunk/framegraph/engine/renderer/framegraph"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnRender          Render
	FnOnResize        OnResize
	FnPasses          Passes
	FnShutdown        Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error

// Render returns the scene drawn by the frame graph this tick.
type Render func(deltaTime float64) (framegraph.Scene, error)
type OnResize func(width uint32, height uint32) error

// Passes returns the recording callbacks of the passes named in graph. It
// is called again whenever the graph is rebuilt.
type Passes func(graph config.GraphConfig) config.RenderFuncs
type Shutdown func() error
