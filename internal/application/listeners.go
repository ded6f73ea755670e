package application

import (
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/jobrunner/mapview/internal/domain"
)

// BoundsListener receives viewport change events. Returning an error (or
// panicking) is logged by the viewport and does not stop delivery to other
// listeners.
type BoundsListener interface {
	BoundsChanged(event domain.BoundsChangeEvent) error
}

// listenerSet is a copy-on-write list of listeners. Dispatch iterates over
// an immutable snapshot, so listeners may add or remove listeners from
// within a callback.
type listenerSet struct {
	mu    sync.Mutex // serializes writers
	items atomic.Pointer[[]BoundsListener]
}

// add registers l unless it is already present. Listeners are compared by
// identity, which requires a comparable dynamic type (typically a pointer).
func (s *listenerSet) add(l BoundsListener) bool {
	if l == nil || !reflect.TypeOf(l).Comparable() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.snapshot()
	if slices.Contains(current, l) {
		return false
	}

	next := make([]BoundsListener, len(current), len(current)+1)
	copy(next, current)
	next = append(next, l)
	s.items.Store(&next)
	return true
}

// remove unregisters l. It reports whether l was registered.
func (s *listenerSet) remove(l BoundsListener) bool {
	if l == nil || !reflect.TypeOf(l).Comparable() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.snapshot()
	idx := slices.Index(current, l)
	if idx < 0 {
		return false
	}

	next := make([]BoundsListener, 0, len(current)-1)
	next = append(next, current[:idx]...)
	next = append(next, current[idx+1:]...)
	s.items.Store(&next)
	return true
}

// snapshot returns the current listeners. The slice must not be modified.
func (s *listenerSet) snapshot() []BoundsListener {
	if p := s.items.Load(); p != nil {
		return *p
	}
	return nil
}

// len returns the number of registered listeners.
func (s *listenerSet) len() int {
	return len(s.snapshot())
}
