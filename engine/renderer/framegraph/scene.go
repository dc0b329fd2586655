package framegraph

import (
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

// Camera matrices are column major.
type Camera struct {
	View       [16]float32
	Projection [16]float32
}

// Scene is what the recording callbacks draw.
type Scene interface {
	Camera() Camera
}

// Recorder is handed to a RenderFunc while the pass is open on Cmd.
type Recorder struct {
	Device     gfx.CommandRecorder
	Cmd        gfx.CommandBuffer
	Pass       *RenderPass
	Frame      Frame
	Resolution gfx.Extent
}

// RenderFunc records the draw commands of one pass.
type RenderFunc func(rec Recorder, scene Scene)
