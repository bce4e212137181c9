package hba

import (
	"strings"
	"sync/atomic"
)

// Capability is a set of resource access flags.
type Capability uint8

// Resource capabilities.
const (
	Readable Capability = 1 << iota
	Writable
	Broadcastable
)

// String lists the user commands the capabilities allow.
func (c Capability) String() string {
	var names []string
	if c&Readable != 0 {
		names = append(names, "get")
	}
	if c&Writable != 0 {
		names = append(names, "set")
	}
	if c&Broadcastable != 0 {
		names = append(names, "cat")
	}
	return strings.Join(names, ", ")
}

// MarshalText implements encoding.TextMarshaler.
func (c Capability) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Resource is a user visible register of a plugin.
type Resource struct {
	Name string
	Caps Capability

	slot *Slot
	key  uint32
}

// NewResource creates a Resource.
func NewResource(name string, caps Capability) *Resource {
	return &Resource{Name: name, Caps: caps}
}

// Can tells whether the resource has all of caps.
func (r *Resource) Can(caps Capability) bool {
	return r.Caps&caps == caps
}

// Slot returns the registry slot owning the resource, nil before the plugin
// is registered.
func (r *Resource) Slot() *Slot {
	return r.slot
}

// Path is "plugin/resource".
func (r *Resource) Path() string {
	if r.slot == nil {
		return r.Name
	}
	return r.slot.Name() + "/" + r.Name
}

// ObserverKey is non-zero while at least one observer is subscribed.
func (r *Resource) ObserverKey() uint32 {
	return atomic.LoadUint32(&r.key)
}

// SetObserverKey is used by the observer subsystem.
func (r *Resource) SetObserverKey(key uint32) {
	atomic.StoreUint32(&r.key, key)
}

// Observed tells whether a broadcast would reach anyone.
func (r *Resource) Observed() bool {
	return r.ObserverKey() != 0
}
