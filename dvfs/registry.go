package dvfs

import (
	"fmt"
	"sync"
)

type slotState int

const (
	slotFree slotState = iota
	slotReserved
	slotReady
)

type slot struct {
	state  slotState
	domain *Domain
}

// DefaultCapacity is the number of domains a registry holds by default.
const DefaultCapacity = 7

// Registry is a fixed-size arena of domains indexed by id. Domains are
// created on first reference and never destroyed.
type Registry struct {
	lock  sync.RWMutex
	slots []slot
}

// NewRegistry creates a registry for ids in [0, capacity).
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 || capacity > MaxDomainIDs {
		panic(fmt.Sprintf("registry capacity %d out of range (1..%d)",
			capacity, MaxDomainIDs))
	}

	return &Registry{
		slots: make([]slot, capacity),
	}
}

// Capacity returns the number of slots.
func (r *Registry) Capacity() int {
	return len(r.slots)
}

// GetOrCreate returns the domain in slot id, reserving the slot if it is
// free.
func (r *Registry) GetOrCreate(id DomainID) (*Domain, error) {
	if id < 0 || int(id) >= len(r.slots) {
		return nil, fmt.Errorf("%w: id %d beyond capacity %d",
			ErrUnknownDomain, id, len(r.slots))
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	s := &r.slots[id]
	if s.state == slotFree {
		s.state = slotReserved
		s.domain = &Domain{id: id}
	}

	return s.domain, nil
}

// Lookup returns a domain that finished initialization.
func (r *Registry) Lookup(id DomainID) (*Domain, bool) {
	if id < 0 || int(id) >= len(r.slots) {
		return nil, false
	}

	r.lock.RLock()
	defer r.lock.RUnlock()

	s := r.slots[id]
	if s.state != slotReady {
		return nil, false
	}

	return s.domain, true
}

// Reserved tells if a slot was referenced but its domain is not ready.
func (r *Registry) Reserved(id DomainID) bool {
	if id < 0 || int(id) >= len(r.slots) {
		return false
	}

	r.lock.RLock()
	defer r.lock.RUnlock()

	return r.slots[id].state == slotReserved
}

func (r *Registry) markReady(id DomainID) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.slots[id].state = slotReady
}

// Ready lists the initialized domains in id order.
func (r *Registry) Ready() []*Domain {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var ds []*Domain

	for _, s := range r.slots {
		if s.state == slotReady {
			ds = append(ds, s.domain)
		}
	}

	return ds
}
