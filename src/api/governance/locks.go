package governance

import "sync"

// Locks serializes vote casting and conclusion per proposal id, so the
// read-then-write guards in the handlers cannot interleave for the same
// proposal. The DB unique index on votes backs this up.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewLocks() *Locks {
	return &Locks{locks: make(map[string]*entry)}
}

// Acquire blocks until the key's lock is held and returns the release func.
func (l *Locks) Acquire(key string) func() {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
