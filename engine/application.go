package engine

import (
	"github.com/spaghettifunk/framegraph/engine/config"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/framegraph"
)

type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32
	// Window starting position y axis, if applicable.
	StartPosY uint32
	// Window starting width, if applicable.
	StartWidth uint32
	// Window starting height, if applicable.
	StartHeight uint32
	// The application name used in windowing, if applicable.
	Name     string
	LogLevel core.LogLevel
	// Enables the Vulkan validation layers.
	Validation bool
	Renderer   framegraph.Options
	Graph      config.GraphConfig
	// Watched for changes when set. Every valid version is applied while
	// the engine runs.
	ConfigPath string
}

// NewApplicationConfig takes everything from a loaded configuration file.
func NewApplicationConfig(cfg *config.Config, path string) *ApplicationConfig {
	return &ApplicationConfig{
		StartPosX:   cfg.Window.X,
		StartPosY:   cfg.Window.Y,
		StartWidth:  cfg.Window.Width,
		StartHeight: cfg.Window.Height,
		Name:        cfg.Window.Title,
		LogLevel:    cfg.LogLevel(),
		Validation:  cfg.Renderer.Validation,
		Renderer:    cfg.Options(),
		Graph:       cfg.Passes,
		ConfigPath:  path,
	}
}
