package anchor

import (
	"sync"
)

var _ Attributes = (*Store)(nil)

// Store maps (scope, key) pairs to values. Lookups walk the parent chain on
// every call; nothing is cached in descendants.
type Store struct {
	mu      sync.RWMutex
	entries map[string]map[any]any
}

func NewStore() *Store {
	return &Store{entries: make(map[string]map[any]any)}
}

func (s *Store) lookup(scope *Scope, key any) (any, *Scope, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for sc := scope; sc != nil; sc = sc.parent {
		if v, ok := s.entries[sc.id][key]; ok {
			return v, sc, true
		}
	}

	return nil, nil, false
}

func (s *Store) local(scope *Scope, key any) (any, bool) {
	if scope == nil {
		return nil, false
	}

	s.mu.RLock()
	v, ok := s.entries[scope.id][key]
	s.mu.RUnlock()
	return v, ok
}

func (s *Store) set(scope *Scope, key any, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.entries[scope.id]
	if !ok {
		m = make(map[any]any, 2)
		s.entries[scope.id] = m
	}
	m[key] = value
}

func (s *Store) remove(scope *Scope, key any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.entries[scope.id]
	if !ok {
		return
	}
	delete(m, key)
	if len(m) == 0 {
		delete(s.entries, scope.id)
	}
}

// drop forgets every entry of the scope, used once the scope has exited.
func (s *Store) drop(scope *Scope) {
	s.mu.Lock()
	delete(s.entries, scope.id)
	s.mu.Unlock()
}

// Len returns the number of scopes holding at least one entry.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
