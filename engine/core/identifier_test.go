package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDPoolReusesReleasedIDs(t *testing.T) {
	pool := NewIDPool(2)
	a := pool.Acquire("a")
	b := pool.Acquire("b")
	c := pool.Acquire("c")
	assert.Equal(t, []uint32{0, 1, 2}, []uint32{a, b, c})
	assert.Equal(t, "b", pool.Owner(b))

	require.NoError(t, pool.Release(b))
	assert.Nil(t, pool.Owner(b))
	assert.Equal(t, b, pool.Acquire("d"))
	assert.Equal(t, "d", pool.Owner(b))
}

func TestIDPoolReleaseOutOfRange(t *testing.T) {
	pool := NewIDPool(1)
	assert.Error(t, pool.Release(4))
	assert.Nil(t, pool.Owner(4))
}
