package framegraph

import (
	"fmt"
)

// Frame identifies the frame currently in flight. InFlight rotates with every
// submitted frame, Image is the swapchain image returned by acquire. The two
// are not required to be equal.
type Frame struct {
	InFlight uint32
	Image    uint32
}

func (f Frame) String() string {
	return fmt.Sprintf("frame(%d/img %d)", f.InFlight, f.Image)
}

// Keying selects which part of a Frame picks the slot of a Resource.
type Keying int

const (
	// One instance shared by every frame.
	KeyStatic Keying = iota
	// One instance per frame-in-flight index.
	KeyInFlight
	// One instance per swapchain image index.
	KeyImage
)

func (k Keying) String() string {
	switch k {
	case KeyStatic:
		return "static"
	case KeyInFlight:
		return "in-flight"
	case KeyImage:
		return "image"
	}
	return fmt.Sprintf("keying(%d)", int(k))
}

// Factory builds the value of one slot of a Resource.
type Factory[T any] func(frame Frame) (T, error)

type slot[T any] struct {
	value T
	built bool
}

// Resource is a lazily built, versioned GPU object: either one static
// instance or one instance per frame slot. Slots are built on first access
// and rebuilt after being invalidated.
//
// A slot has a single writer: it must only be accessed for the frame that is
// currently in flight on the goroutine driving the owning frame graph. Once
// Begin has pinned a frame, touching the slot of any other frame panics.
type Resource[T any] struct {
	name    string
	keying  Keying
	slots   []slot[T]
	build   Factory[T]
	release func(T)
	builds  int

	current Frame
	pinned  bool
}

// NewStatic creates a resource holding a single instance for all frames.
func NewStatic[T any](name string, build Factory[T]) *Resource[T] {
	return &Resource[T]{
		name:   name,
		keying: KeyStatic,
		slots:  make([]slot[T], 1),
		build:  build,
	}
}

// NewPerFrame creates a resource with n slots keyed by the frame-in-flight index.
func NewPerFrame[T any](name string, n int, build Factory[T]) *Resource[T] {
	return newKeyed(name, KeyInFlight, n, build)
}

// NewPerImage creates a resource with n slots keyed by the swapchain image index.
func NewPerImage[T any](name string, n int, build Factory[T]) *Resource[T] {
	return newKeyed(name, KeyImage, n, build)
}

func newKeyed[T any](name string, keying Keying, n int, build Factory[T]) *Resource[T] {
	if n < 1 {
		panic(fmt.Sprintf("resource %q: invalid slot count %d", name, n))
	}
	return &Resource[T]{
		name:   name,
		keying: keying,
		slots:  make([]slot[T], n),
		build:  build,
	}
}

// OnRelease registers fn to destroy built values when they are invalidated
// or released.
func (r *Resource[T]) OnRelease(fn func(T)) *Resource[T] {
	r.release = fn
	return r
}

func (r *Resource[T]) Name() string {
	return r.name
}

func (r *Resource[T]) Keying() Keying {
	return r.keying
}

func (r *Resource[T]) Len() int {
	return len(r.slots)
}

// Builds counts how many times the factory produced a value.
func (r *Resource[T]) Builds() int {
	return r.builds
}

// Begin pins the resource to the frame now in flight.
func (r *Resource[T]) Begin(frame Frame) {
	r.current = frame
	r.pinned = true
}

// Current returns the pinned frame, if any.
func (r *Resource[T]) Current() (Frame, bool) {
	return r.current, r.pinned
}

func (r *Resource[T]) key(frame Frame) uint32 {
	if r.keying == KeyImage {
		return frame.Image
	}
	return frame.InFlight
}

// owned panics when frame is not the pinned one.
func (r *Resource[T]) owned(frame Frame, op string) {
	if !r.pinned || r.keying == KeyStatic {
		return
	}
	if r.key(frame) != r.key(r.current) {
		panic(fmt.Sprintf("resource %q (%s): %s for %v while %v is in flight", r.name, r.keying, op, frame, r.current))
	}
}

func (r *Resource[T]) index(frame Frame) int {
	if r.keying == KeyStatic {
		return 0
	}
	i := r.key(frame)
	if int(i) >= len(r.slots) {
		panic(fmt.Sprintf("resource %q (%s): %v out of range, %d slots", r.name, r.keying, frame, len(r.slots)))
	}
	return int(i)
}

// Get returns the value for frame, building it first if the slot is empty.
func (r *Resource[T]) Get(frame Frame) (T, error) {
	r.owned(frame, "get")
	s := &r.slots[r.index(frame)]
	if s.built {
		return s.value, nil
	}
	v, err := r.build(frame)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("building %s for %v: %w", r.name, frame, err)
	}
	s.value = v
	s.built = true
	r.builds++
	return v, nil
}

// Built reports whether the slot for frame holds a value.
func (r *Resource[T]) Built(frame Frame) bool {
	return r.slots[r.index(frame)].built
}

// Invalidate drops every built value and replaces the factory. A nil
// factory keeps the current one. Slots are rebuilt lazily.
func (r *Resource[T]) Invalidate(build Factory[T]) {
	r.Release()
	if build != nil {
		r.build = build
	}
}

// InvalidateFrame drops the slot of a single frame. Static resources have
// no per-frame slots, and a pinned resource only accepts its current frame:
// anything else is a programming error.
func (r *Resource[T]) InvalidateFrame(frame Frame) {
	if r.keying == KeyStatic {
		panic(fmt.Sprintf("resource %q: per-frame invalidation of a static resource", r.name))
	}
	r.owned(frame, "invalidate")
	r.drop(&r.slots[r.index(frame)])
}

// Reset releases every value and re-slots the resource for n frames. The
// pinned frame is cleared until the next Begin.
func (r *Resource[T]) Reset(n int, build Factory[T]) {
	if r.keying == KeyStatic {
		panic(fmt.Sprintf("resource %q: static resources cannot be re-slotted", r.name))
	}
	if n < 1 {
		panic(fmt.Sprintf("resource %q: invalid slot count %d", r.name, n))
	}
	r.Release()
	r.slots = make([]slot[T], n)
	r.current, r.pinned = Frame{}, false
	if build != nil {
		r.build = build
	}
}

// Release destroys every built value and marks all slots stale.
func (r *Resource[T]) Release() {
	for i := range r.slots {
		r.drop(&r.slots[i])
	}
}

func (r *Resource[T]) drop(s *slot[T]) {
	if !s.built {
		return
	}
	if r.release != nil {
		r.release(s.value)
	}
	var zero T
	s.value = zero
	s.built = false
}
