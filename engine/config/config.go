// Package config loads the engine configuration and the render graph
// description from a TOML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

// Duration reads "500ms", "2s" and friends.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

type WindowConfig struct {
	Title  string `toml:"title"`
	X      uint32 `toml:"x"`
	Y      uint32 `toml:"y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	FramesInFlight int             `toml:"frames_in_flight"`
	PresentMode    gfx.PresentMode `toml:"present_mode"`
	AcquireTimeout Duration        `toml:"acquire_timeout"`
	FenceTimeout   Duration        `toml:"fence_timeout"`
	Validation     bool            `toml:"validation"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Log      LogConfig      `toml:"log"`
	Passes   GraphConfig    `toml:"pass"`
}

// Default is the configuration used for anything the file leaves out.
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:  "framegraph",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			FramesInFlight: framegraph.DefaultFramesInFlight,
			PresentMode:    gfx.PresentModeMailbox,
			AcquireTimeout: Duration(framegraph.DefaultAcquireTimeout),
			FenceTimeout:   Duration(framegraph.DefaultFenceTimeout),
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, errors.New(strict.String())
		}
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, fmt.Errorf("line %d column %d: %w", row, col, err)
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("window size %dx%d must not be zero", c.Window.Width, c.Window.Height)
	}
	if c.Renderer.FramesInFlight < 1 {
		return fmt.Errorf("renderer.frames_in_flight must be at least 1, got %d", c.Renderer.FramesInFlight)
	}
	if c.Renderer.AcquireTimeout <= 0 || c.Renderer.FenceTimeout <= 0 {
		return errors.New("renderer timeouts must be positive")
	}
	if _, err := core.ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	return c.Passes.validate()
}

// Options converts the renderer section for framegraph.NewContext.
func (c *Config) Options() framegraph.Options {
	return framegraph.Options{
		FramesInFlight: c.Renderer.FramesInFlight,
		PresentMode:    c.Renderer.PresentMode,
		AcquireTimeout: time.Duration(c.Renderer.AcquireTimeout),
		FenceTimeout:   time.Duration(c.Renderer.FenceTimeout),
	}
}

// LogLevel is only valid on a validated config.
func (c *Config) LogLevel() core.LogLevel {
	level, _ := core.ParseLogLevel(c.Log.Level)
	return level
}
