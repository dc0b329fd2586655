package vulkan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleTable(t *testing.T) {
	table := newHandleTable[string]("thing")

	a := table.insert("a")
	b := table.insert("b")
	assert.NotZero(t, a)
	assert.NotEqual(t, a, b)

	v, err := table.get(b)
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	table.replace(b, "b2")
	v, _ = table.get(b)
	assert.Equal(t, "b2", v)

	_, ok := table.remove(a)
	assert.True(t, ok)
	_, err = table.get(a)
	assert.ErrorContains(t, err, "unknown thing handle")

	c := table.insert("c")
	assert.Greater(t, c, b, "handles are never reused")

	matched := table.drainWhere(func(s string) bool { return s == "c" })
	assert.Equal(t, []string{"c"}, matched)
	assert.Equal(t, 1, table.len())
	assert.Equal(t, []string{"b2"}, table.drain())
	assert.Equal(t, 0, table.len())
}
