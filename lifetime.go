package placebo

import "sync"

// lifetime tracks whether an object is alive and how many objects created
// from it still are. An object can only retire once it has no dependents.
type lifetime struct {
	mu   sync.Mutex
	deps int
	dead bool
}

// acquire registers a new dependent.
func (l *lifetime) acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dead {
		return ErrStaleHandle
	}
	l.deps++
	return nil
}

// release drops a dependent registered with acquire.
func (l *lifetime) release() {
	l.mu.Lock()
	if l.deps > 0 {
		l.deps--
	}
	l.mu.Unlock()
}

// retire marks the object dead. It reports false without error when the
// object already was, and ErrLiveResources while dependents remain.
func (l *lifetime) retire() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dead {
		return false, nil
	}
	if l.deps > 0 {
		return false, ErrLiveResources
	}
	l.dead = true
	return true, nil
}

func (l *lifetime) alive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.dead
}

func (l *lifetime) dependents() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.deps
}
