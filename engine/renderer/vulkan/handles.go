package vulkan

import (
	"fmt"
	"sync"
)

// handleTable maps the opaque handles given to the frame graph back to the
// Vulkan objects they stand for. Handle 0 is never issued.
type handleTable[T any] struct {
	mu      sync.RWMutex
	kind    string
	next    uint64
	objects map[uint64]T
}

func newHandleTable[T any](kind string) *handleTable[T] {
	return &handleTable[T]{kind: kind, objects: make(map[uint64]T)}
}

func (t *handleTable[T]) insert(obj T) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	t.objects[t.next] = obj
	return t.next
}

func (t *handleTable[T]) get(h uint64) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	obj, ok := t.objects[h]
	if !ok {
		var zero T
		return zero, fmt.Errorf("unknown %s handle %d", t.kind, h)
	}
	return obj, nil
}

// remove returns the object and forgets the handle.
func (t *handleTable[T]) remove(h uint64) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	obj, ok := t.objects[h]
	delete(t.objects, h)
	return obj, ok
}

// replace rebinds an existing handle to a new object.
func (t *handleTable[T]) replace(h uint64, obj T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.objects[h] = obj
}

func (t *handleTable[T]) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.objects)
}

// drain empties the table and returns what it held.
func (t *handleTable[T]) drain() []T {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]T, 0, len(t.objects))
	for h, obj := range t.objects {
		out = append(out, obj)
		delete(t.objects, h)
	}
	return out
}

// drainWhere removes and returns the objects for which match holds.
func (t *handleTable[T]) drainWhere(match func(T) bool) []T {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []T
	for h, obj := range t.objects {
		if match(obj) {
			out = append(out, obj)
			delete(t.objects, h)
		}
	}
	return out
}
