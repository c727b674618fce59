package anchor

// Key identifies the kind of value stored for a scope. Keys are compared by
// identity, so two keys with the same name are still distinct.
type Key[T any] struct {
	name string
}

func NewKey[T any](name string) *Key[T] {
	return &Key[T]{name: name}
}

func (k *Key[T]) String() string {
	return k.name
}

// Attributes is implemented by *Store and *Registry.
type Attributes interface {
	lookup(scope *Scope, key any) (any, *Scope, bool)
	local(scope *Scope, key any) (any, bool)
	set(scope *Scope, key any, value any)
	remove(scope *Scope, key any)
}

// Set stores value for (scope, key), overwriting any previous value.
func Set[T any](a Attributes, scope *Scope, key *Key[T], value T) {
	a.set(scope, key, value)
}

// Get returns the value stored for key on scope or, failing that, on the
// nearest ancestor holding one. ok is false when no scope in the chain has it.
func Get[T any](a Attributes, scope *Scope, key *Key[T]) (T, bool) {
	v, _, ok := GetFrom(a, scope, key)
	return v, ok
}

// GetFrom is Get that also reports which scope held the value.
func GetFrom[T any](a Attributes, scope *Scope, key *Key[T]) (T, *Scope, bool) {
	var zero T
	v, holder, ok := a.lookup(scope, key)
	if !ok {
		return zero, nil, false
	}
	// nil interface values are stored as-is
	out, _ := v.(T)
	return out, holder, true
}

// Local looks at scope only and never walks to the parent.
func Local[T any](a Attributes, scope *Scope, key *Key[T]) (T, bool) {
	var zero T
	v, ok := a.local(scope, key)
	if !ok {
		return zero, false
	}
	out, _ := v.(T)
	return out, true
}

// Remove deletes the entry stored on scope itself. Ancestors are untouched.
func Remove[T any](a Attributes, scope *Scope, key *Key[T]) {
	a.remove(scope, key)
}
