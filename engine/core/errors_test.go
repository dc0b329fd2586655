package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFatalKeepsCause(t *testing.T) {
	err := Fatal(ErrDeviceLost, "submitting frame %d", 3)

	assert.ErrorIs(t, err, ErrFatal)
	assert.ErrorIs(t, err, ErrDeviceLost)
	assert.Equal(t, "submitting frame 3: device lost", err.Error())

	wrapped := fmt.Errorf("pass %q: %w", "present", err)
	assert.ErrorIs(t, wrapped, ErrFatal)
	assert.True(t, IsFatal(wrapped))
}

func TestFatalWithoutCause(t *testing.T) {
	err := Fatal(nil, "broken graph")
	assert.ErrorIs(t, err, ErrFatal)
	assert.Equal(t, "broken graph", err.Error())
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(ErrTimeout))
	assert.True(t, IsFatal(fmt.Errorf("alloc: %w", ErrOutOfMemory)))
	assert.False(t, IsFatal(ErrSurfaceStale))
	assert.False(t, IsFatal(errors.New("other")))
	assert.False(t, IsFatal(nil))
}
