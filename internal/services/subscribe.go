package services

import "sync"

// listeners fans state changes out to subscribers, e.g. a UI that re-renders.
type listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]func()
}

// add registers fn and returns a function that removes it
func (l *listeners) add(fn func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func())
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

// notify must be called without the store lock held.
func (l *listeners) notify() {
	l.mu.Lock()
	fns := make([]func(), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
