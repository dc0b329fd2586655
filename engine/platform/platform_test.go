package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

func TestFramebufferSizeBumpsGeneration(t *testing.T) {
	bus := core.NewEventBus()
	p := New(bus)

	var got []gfx.Extent
	bus.Register(core.EVENT_CODE_RESIZED, t, func(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
		got = append(got, gfx.Extent{Width: data.U32[0], Height: data.U32[1]})
		return true
	})

	p.onFramebufferSize(1280, 720)
	assert.Equal(t, gfx.Extent{Width: 1280, Height: 720}, p.FramebufferSize())
	assert.Equal(t, uint64(1), p.SizeGeneration())

	// Same size: nothing changes.
	p.onFramebufferSize(1280, 720)
	assert.Equal(t, uint64(1), p.SizeGeneration())

	p.onFramebufferSize(0, 0)
	assert.True(t, p.FramebufferSize().IsZero())
	assert.Equal(t, uint64(2), p.SizeGeneration())

	assert.Equal(t, []gfx.Extent{{Width: 1280, Height: 720}, {}}, got)
}

func TestQuitIsFired(t *testing.T) {
	bus := core.NewEventBus()
	p := New(bus)

	quit := false
	bus.Register(core.EVENT_CODE_APPLICATION_QUIT, t, func(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
		quit = sender == p
		return true
	})
	p.requestQuit()
	assert.True(t, quit)
}

func TestBindSurface(t *testing.T) {
	p := New(nil)
	var w gfx.Window = p
	p.BindSurface(gfx.Surface(7))
	assert.Equal(t, gfx.Surface(7), w.Surface())
	// No bus: resizes are still tracked.
	p.onFramebufferSize(10, 10)
	assert.Equal(t, uint64(1), w.SizeGeneration())
}
