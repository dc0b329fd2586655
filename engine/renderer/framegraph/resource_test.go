package framegraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counter() (Factory[int], *int) {
	n := 0
	return func(Frame) (int, error) {
		n++
		return n, nil
	}, &n
}

func TestStaticResourceSharedAcrossFrames(t *testing.T) {
	build, calls := counter()
	r := NewStatic("static", build)

	a, err := r.Get(Frame{InFlight: 0})
	require.NoError(t, err)
	b, err := r.Get(Frame{InFlight: 1, Image: 2})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 1, *calls)
	assert.Equal(t, KeyStatic, r.Keying())
}

func TestPerFrameResourceIsolation(t *testing.T) {
	build, calls := counter()
	r := NewPerFrame("per-frame", 2, build)

	f0, f1 := Frame{InFlight: 0}, Frame{InFlight: 1}
	a, err := r.Get(f0)
	require.NoError(t, err)
	b, err := r.Get(f1)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	r.InvalidateFrame(f0)
	assert.False(t, r.Built(f0))
	assert.True(t, r.Built(f1))

	again, err := r.Get(f1)
	require.NoError(t, err)
	assert.Equal(t, b, again, "frame 1 must not be rebuilt")

	rebuilt, err := r.Get(f0)
	require.NoError(t, err)
	assert.NotEqual(t, a, rebuilt)
	assert.Equal(t, 3, *calls)
}

func TestPerImageResourceKeying(t *testing.T) {
	build, _ := counter()
	r := NewPerImage("per-image", 3, build)

	a, err := r.Get(Frame{InFlight: 0, Image: 2})
	require.NoError(t, err)
	b, err := r.Get(Frame{InFlight: 1, Image: 2})
	require.NoError(t, err)
	assert.Equal(t, a, b, "same image, same slot")
	assert.False(t, r.Built(Frame{Image: 0}))
}

func TestResourceInvalidateReplacesFactory(t *testing.T) {
	var released []int
	build, _ := counter()
	r := NewPerFrame("fb", 2, build).OnRelease(func(v int) {
		released = append(released, v)
	})

	_, err := r.Get(Frame{InFlight: 0})
	require.NoError(t, err)
	_, err = r.Get(Frame{InFlight: 1})
	require.NoError(t, err)

	r.Invalidate(func(f Frame) (int, error) {
		return 100 + int(f.InFlight), nil
	})
	assert.ElementsMatch(t, []int{1, 2}, released)

	v, err := r.Get(Frame{InFlight: 1})
	require.NoError(t, err)
	assert.Equal(t, 101, v)
	assert.Equal(t, 3, r.Builds())
}

func TestResourceInvalidateKeepsFactory(t *testing.T) {
	build, calls := counter()
	r := NewStatic("static", build)

	_, err := r.Get(Frame{})
	require.NoError(t, err)
	r.Invalidate(nil)
	v, err := r.Get(Frame{})
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, *calls)
}

func TestResourceReset(t *testing.T) {
	build, _ := counter()
	r := NewPerImage("views", 2, build)
	_, err := r.Get(Frame{Image: 1})
	require.NoError(t, err)

	r.Reset(3, nil)
	assert.Equal(t, 3, r.Len())
	assert.False(t, r.Built(Frame{Image: 1}))
	_, err = r.Get(Frame{Image: 2})
	require.NoError(t, err)
}

func TestResourceBuildError(t *testing.T) {
	boom := errors.New("boom")
	r := NewPerFrame("broken", 2, func(Frame) (int, error) {
		return 0, boom
	})

	_, err := r.Get(Frame{InFlight: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "broken")
	assert.False(t, r.Built(Frame{InFlight: 1}))
}

func TestResourceProgrammerErrors(t *testing.T) {
	build, _ := counter()

	assert.Panics(t, func() {
		NewStatic("static", build).InvalidateFrame(Frame{})
	})
	assert.Panics(t, func() {
		_, _ = NewPerFrame("per-frame", 2, build).Get(Frame{InFlight: 2})
	})
	assert.Panics(t, func() {
		NewPerFrame("empty", 0, build)
	})
	assert.Panics(t, func() {
		NewStatic("static", build).Reset(2, nil)
	})
}

func TestResourcePinnedToCurrentFrame(t *testing.T) {
	build, _ := counter()
	r := NewPerFrame("commands", 3, build)
	current := Frame{InFlight: 1, Image: 2}
	r.Begin(current)

	_, err := r.Get(current)
	require.NoError(t, err)
	// Only the in-flight index matters for this keying.
	_, err = r.Get(Frame{InFlight: 1, Image: 0})
	require.NoError(t, err)

	other := Frame{InFlight: 2, Image: 2}
	assert.Panics(t, func() { _, _ = r.Get(other) })
	assert.Panics(t, func() { r.InvalidateFrame(other) })
	assert.NotPanics(t, func() { r.InvalidateFrame(current) })
	assert.False(t, r.Built(current))

	got, ok := r.Current()
	assert.True(t, ok)
	assert.Equal(t, current, got)

	r.Reset(2, nil)
	_, ok = r.Current()
	assert.False(t, ok, "re-slotting drops the pinned frame")
	assert.NotPanics(t, func() { _, _ = r.Get(Frame{InFlight: 0}) })
}

func TestPerImageResourcePinnedByImage(t *testing.T) {
	build, _ := counter()
	r := NewPerImage("views", 3, build)
	r.Begin(Frame{InFlight: 0, Image: 1})

	_, err := r.Get(Frame{InFlight: 2, Image: 1})
	require.NoError(t, err)
	assert.Panics(t, func() { _, _ = r.Get(Frame{InFlight: 0, Image: 0}) })
}

func TestStaticResourceIgnoresPinnedFrame(t *testing.T) {
	build, _ := counter()
	r := NewStatic("pass", build)
	r.Begin(Frame{InFlight: 1})
	assert.NotPanics(t, func() { _, _ = r.Get(Frame{InFlight: 0}) })
}
