package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBusFireStopsWhenHandled(t *testing.T) {
	bus := NewEventBus()
	var order []string

	first, second := "first", "second"
	assert.True(t, bus.Register(EVENT_CODE_RESIZED, &first, func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		order = append(order, first)
		assert.Equal(t, uint32(800), data.U32[0])
		return true
	}))
	assert.True(t, bus.Register(EVENT_CODE_RESIZED, &second, func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		order = append(order, second)
		return false
	}))

	handled := bus.Fire(EVENT_CODE_RESIZED, nil, EventContext{U32: [4]uint32{800, 600}})
	assert.True(t, handled)
	assert.Equal(t, []string{"first"}, order)
}

func TestEventBusRegistration(t *testing.T) {
	bus := NewEventBus()
	listener := &struct{}{}
	noop := func(SystemEventCode, interface{}, interface{}, EventContext) bool { return false }

	assert.True(t, bus.Register(EVENT_CODE_APPLICATION_QUIT, listener, noop))
	assert.False(t, bus.Register(EVENT_CODE_APPLICATION_QUIT, listener, noop), "duplicate listener")
	assert.True(t, bus.Unregister(EVENT_CODE_APPLICATION_QUIT, listener))
	assert.False(t, bus.Unregister(EVENT_CODE_APPLICATION_QUIT, listener))
	assert.False(t, bus.Fire(EVENT_CODE_APPLICATION_QUIT, nil, EventContext{}))
}
