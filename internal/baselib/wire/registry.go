package wire

import (
	"fmt"
	"sync"
)

// ErrAlreadyRegistered is returned when a type name is registered twice
// within the same TypeRegistry.
var ErrAlreadyRegistered = fmt.Errorf("wire: type name already registered")

// ErrNotRegistered is returned when looking up a type name that was never
// registered.
var ErrNotRegistered = fmt.Errorf("wire: type name not registered")

// TypeInfo describes a single registered type: its platform-neutral name,
// the visitor used to inspect values of that type, and whether the type is
// only safe to exchange between actors on the same node.
type TypeInfo struct {
	// Name is the platform-neutral registered name for this type.
	Name string

	// Visit enumerates the fields of a value of this type, in a fixed
	// order, against the given Inspector.
	Visit func(v any, insp Inspector) error

	// Unsafe marks a type that is only accepted for same-node
	// messaging; the core's only enforcement of this flag is exposing
	// it via IsUnsafe so that an external transport can refuse it.
	Unsafe bool
}

// TypeRegistry implements spec.md §6's "Serialization / Inspection
// contract": a bijective mapping between a platform-neutral type name and
// the visitor function used to enumerate its fields. The core's only
// requirement is that registration be bijective within a node; everything
// else (actually marshaling bytes) belongs to an external transport this
// package never imports.
type TypeRegistry struct {
	mu       sync.RWMutex
	byName   map[string]TypeInfo
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{byName: make(map[string]TypeInfo)}
}

// Register adds a type under the given name. It returns
// ErrAlreadyRegistered if the name is already taken, enforcing the
// bijective-within-a-node contract.
func (r *TypeRegistry) Register(info TypeInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[info.Name]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, info.Name)
	}
	r.byName[info.Name] = info
	return nil
}

// Lookup returns the TypeInfo registered under name.
func (r *TypeRegistry) Lookup(name string) (TypeInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.byName[name]
	if !ok {
		return TypeInfo{}, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	return info, nil
}

// IsUnsafe reports whether the type registered under name is marked
// unsafe (same-node only). It returns false for unknown names.
func (r *TypeRegistry) IsUnsafe(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.byName[name].Unsafe
}
