package vulkan

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockPoolSerializesGroup(t *testing.T) {
	pool := NewVulkanLockPool()

	var wg sync.WaitGroup
	inside, maxInside := 0, 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.SafeCall(ImageManagement, func() error {
				inside++
				if inside > maxInside {
					maxInside = inside
				}
				inside--
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxInside)
}

func TestLockPoolQueueCall(t *testing.T) {
	pool := NewVulkanLockPool()
	boom := errors.New("boom")

	assert.Panics(t, func() { _ = pool.SafeQueueCall(3, func() error { return nil }) })

	pool.SetQueueFamily(3)
	assert.ErrorIs(t, pool.SafeQueueCall(3, func() error { return boom }), boom)
	// A nested call on another family does not deadlock.
	pool.SetQueueFamily(4)
	err := pool.SafeQueueCall(3, func() error {
		return pool.SafeQueueCall(4, func() error { return nil })
	})
	assert.NoError(t, err)
}
