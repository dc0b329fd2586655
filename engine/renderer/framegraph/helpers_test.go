package framegraph

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx/gfxtest"
)

var fullHD = gfx.Extent{Width: 1920, Height: 1080}

type testScene struct{}

func (testScene) Camera() Camera {
	return Camera{}
}

type fixture struct {
	dev     *gfxtest.Device
	window  *gfxtest.Window
	ctx     *Context
	surface *Surface
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dev := gfxtest.NewDevice()
	window := gfxtest.NewWindow(1, fullHD)
	ctx, err := NewContext(dev, Options{})
	require.NoError(t, err)
	surface, err := NewSurface(ctx, window)
	require.NoError(t, err)

	t.Cleanup(func() {
		surface.Destroy()
		ctx.Destroy()
	})
	return &fixture{dev: dev, window: window, ctx: ctx, surface: surface}
}

// resize changes the window and the surface capabilities together.
func (f *fixture) resize(e gfx.Extent) {
	f.window.Resize(e)
	f.dev.SetSurfaceExtent(e)
}

// drawLog records the order in which passes invoke their callback.
type drawLog struct {
	mu    sync.Mutex
	names []string
}

func (l *drawLog) record(name string) RenderFunc {
	return func(rec Recorder, scene Scene) {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.names = append(l.names, name)
	}
}

func (l *drawLog) calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.names...)
}

func color(name string, format gfx.Format) Attachment {
	return Attachment{
		Name:   name,
		Format: format,
		Clear:  ClearColor,
		Value:  gfx.ClearValue{Color: [4]float32{0, 0, 0, 1}},
	}
}

func depth(name string) Attachment {
	return Attachment{Name: name, Format: gfx.FormatD32Sfloat, Clear: ClearDepthStencil}
}

// indexOf returns the position of name in names, -1 when absent.
func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
