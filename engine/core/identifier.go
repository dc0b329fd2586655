package core

import (
	"fmt"
	"sync"
)

// IDPool hands out small integer identifiers, reusing released ones first.
type IDPool struct {
	mu     sync.Mutex
	owners []interface{}
}

func NewIDPool(capacity int) *IDPool {
	return &IDPool{owners: make([]interface{}, 0, capacity)}
}

func (p *IDPool) Acquire(owner interface{}) uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.owners {
		// Existing free spot. Take it.
		if p.owners[i] == nil {
			p.owners[i] = owner
			return uint32(i)
		}
	}
	p.owners = append(p.owners, owner)
	return uint32(len(p.owners) - 1)
}

func (p *IDPool) Release(id uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if int(id) >= len(p.owners) {
		return fmt.Errorf("id '%d' out of range (max=%d). Nothing was done", id, len(p.owners))
	}
	p.owners[id] = nil
	return nil
}

func (p *IDPool) Owner(id uint32) interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	if int(id) >= len(p.owners) {
		return nil
	}
	return p.owners[id]
}
