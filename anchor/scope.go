package anchor

import (
	"github.com/google/uuid"
)

// Scope identifies one nesting level of a test execution.
type Scope struct {
	id     string
	name   string
	parent *Scope
}

// NewScope creates a scope with a fresh identity. The parent may be nil for a
// root (suite) scope and can never be changed afterwards.
func NewScope(name string, parent *Scope) *Scope {
	return &Scope{
		id:     uuid.NewString(),
		name:   name,
		parent: parent,
	}
}

func (s *Scope) ID() string {
	return s.id
}

func (s *Scope) DisplayName() string {
	return s.name
}

func (s *Scope) Parent() *Scope {
	return s.parent
}

// IsAncestorOf reports whether s is a strict ancestor of other.
func (s *Scope) IsAncestorOf(other *Scope) bool {
	if s == nil || other == nil {
		return false
	}
	for p := other.parent; p != nil; p = p.parent {
		if p == s {
			return true
		}
	}
	return false
}

// Depth is 0 for a root scope.
func (s *Scope) Depth() int {
	d := 0
	for p := s.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

func (s *Scope) String() string {
	if s == nil {
		return "<nil>"
	}
	return s.name + "#" + s.id[:8]
}
