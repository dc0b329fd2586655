package framegraph

import (
	"fmt"
	"sync"
	"time"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/gfx"
)

// Queue serializes access to one hardware queue. Every submission reuses a
// single fence: a submit first waits for the previous one to retire.
type Queue struct {
	kind    gfx.QueueKind
	device  gfx.Device
	timeout time.Duration

	mu    sync.Mutex
	fence gfx.Fence
	count uint64
}

func NewQueue(device gfx.Device, kind gfx.QueueKind, timeout time.Duration) (*Queue, error) {
	// Signaled so that the very first wait returns immediately.
	fence, err := device.CreateFence(true)
	if err != nil {
		return nil, fmt.Errorf("creating %s queue fence: %w", kind, err)
	}
	return &Queue{
		kind:    kind,
		device:  device,
		timeout: timeout,
		fence:   fence,
	}, nil
}

func (q *Queue) Kind() gfx.QueueKind {
	return q.kind
}

// Submissions is the number of batches submitted so far.
func (q *Queue) Submissions() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Wait blocks until the last submission to the queue has retired.
func (q *Queue) Wait() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.wait()
}

func (q *Queue) wait() error {
	if err := q.device.WaitForFence(q.fence, q.timeout); err != nil {
		return core.Fatal(err, "waiting on the %s queue fence", q.kind)
	}
	return nil
}

func (q *Queue) Submit(info gfx.SubmitInfo) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.wait(); err != nil {
		return err
	}
	if err := q.device.ResetFence(q.fence); err != nil {
		return core.Fatal(err, "resetting the %s queue fence", q.kind)
	}
	if err := q.device.Submit(q.kind, info, q.fence); err != nil {
		return core.Fatal(err, "submitting to the %s queue", q.kind)
	}
	q.count++
	return nil
}

// Present hands image index of sc to the presentation engine once every
// semaphore in waits is signaled.
func (q *Queue) Present(waits []gfx.Semaphore, sc gfx.Swapchain, index uint32) (gfx.Status, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.device.Present(q.kind, waits, sc, index)
}

func (q *Queue) Destroy() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fence != 0 {
		q.device.DestroyFence(q.fence)
		q.fence = 0
	}
}
