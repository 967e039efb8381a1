// Package transition tracks which members are mid season-transition.
//
// The archiver holds a member's lock from the moment its profile is
// reset until the global season pointer flips. While the lock is held,
// rating recomposition for that member must be refused: it would run
// against the outgoing season and clobber the reset.
package transition

import (
	"sync"
	"sync/atomic"
)

// Locker is the transition lock registry consulted by the composer.
type Locker interface {
	// Lock marks a member as transitioning. Returns false if the member
	// was already locked.
	Lock(memberID string) bool

	// Unlock releases a member's transition lock.
	Unlock(memberID string)

	// Locked reports whether the member is currently transitioning.
	Locked(memberID string) bool

	// Size returns the number of members currently locked.
	Size() int64
}

// registry implements Locker with an in-memory set.
type registry struct {
	mu     sync.RWMutex
	locked map[string]struct{}
	size   atomic.Int64
}

// NewRegistry creates an empty transition lock registry.
func NewRegistry() Locker {
	return &registry{
		locked: make(map[string]struct{}),
	}
}

// Lock marks a member as transitioning.
func (r *registry) Lock(memberID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.locked[memberID]; exists {
		return false
	}
	r.locked[memberID] = struct{}{}
	r.size.Add(1)
	return true
}

// Unlock releases a member's transition lock.
func (r *registry) Unlock(memberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.locked[memberID]; exists {
		delete(r.locked, memberID)
		r.size.Add(-1)
	}
}

// Locked reports whether the member is currently transitioning.
func (r *registry) Locked(memberID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.locked[memberID]
	return exists
}

// Size returns the number of members currently locked.
func (r *registry) Size() int64 {
	return r.size.Load()
}
