package hba

import (
	"fmt"
	"sync"
)

// Slot is a plugin loaded into the registry.
type Slot struct {
	Index  int
	Plugin Plugin
}

// Name is the plugin name.
func (s *Slot) Name() string {
	return s.Plugin.Info().Name
}

// Resource finds a resource by name and returns its ID within the plugin.
func (s *Slot) Resource(name string) (int, *Resource) {
	for id, rsc := range s.Plugin.Info().Resources {
		if rsc.Name == name {
			return id, rsc
		}
	}
	return -1, nil
}

// Registry holds the active plugins of a daemon.
type Registry struct {
	slots []*Slot
	lock  sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add loads a plugin into the next free slot.
func (r *Registry) Add(p Plugin) *Slot {
	r.lock.Lock()
	defer r.lock.Unlock()
	slot := &Slot{Index: len(r.slots), Plugin: p}
	for _, rsc := range p.Info().Resources {
		rsc.slot = slot
	}
	r.slots = append(r.slots, slot)
	return slot
}

// Slot returns the slot at index.
func (r *Registry) Slot(index int) *Slot {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if index < 0 || index >= len(r.slots) {
		return nil
	}
	return r.slots[index]
}

// Lookup finds a slot by plugin name.
func (r *Registry) Lookup(name string) *Slot {
	r.lock.RLock()
	defer r.lock.RUnlock()
	for _, slot := range r.slots {
		if slot.Name() == name {
			return slot
		}
	}
	return nil
}

// Slots returns all slots in load order.
func (r *Registry) Slots() []*Slot {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return append([]*Slot(nil), r.slots...)
}

// Parent returns the index of the most recently loaded plugin which is able
// to send packets, or -1.
func (r *Registry) Parent() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	for i := len(r.slots) - 1; i >= 0; i-- {
		if _, ok := r.slots[i].Plugin.(Sender); ok {
			return i
		}
	}
	return -1
}

// Sender resolves the packet sender of the parent slot.
func (r *Registry) Sender(parent int) (Sender, error) {
	slot := r.Slot(parent)
	if slot == nil {
		return nil, fmt.Errorf("slot %d: %w", parent, ErrNoSlot)
	}
	sender, ok := slot.Plugin.(Sender)
	if !ok {
		return nil, fmt.Errorf("slot %d (%s): %w", parent, slot.Name(), ErrNoSender)
	}
	return sender, nil
}
