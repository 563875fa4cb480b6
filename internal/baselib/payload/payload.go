// Package payload implements the runtime's copy-on-write, type-erased
// message tuple. A Payload is an immutable-by-default sequence of
// heterogeneous typed fields with shared ownership: cloning a Payload is
// O(1) and only the first mutation through a shared clone pays the cost of
// copying the whole tuple.
package payload

import (
	"fmt"
	"reflect"
	"sync/atomic"
)

// ErrTypeMismatch is returned by a typed field accessor when the field's
// actual type does not match the requested type.
type ErrTypeMismatch struct {
	Index    int
	Want     reflect.Type
	Have     reflect.Type
}

func (e *ErrTypeMismatch) Error() string {
	return fmt.Sprintf("payload: field %d type mismatch: want %s, have %s",
		e.Index, e.Want, e.Have)
}

// ErrIndexOutOfRange is returned when a field index is outside [0, Len()).
type ErrIndexOutOfRange struct {
	Index int
	Len    int
}

func (e *ErrIndexOutOfRange) Error() string {
	return fmt.Sprintf("payload: index %d out of range [0, %d)",
		e.Index, e.Len)
}

// storage is the shared, reference-counted backing array for a family of
// Payload clones. Exactly one storage instance is live per "logical"
// tuple value; every Payload that has not yet diverged via mutation points
// at the same storage.
type storage struct {
	fields []any

	// refCount tracks how many Payload handles currently share this
	// storage. It starts at 1 (the Payload that created it) and is
	// incremented on Clone, decremented when a clone mutates away from
	// shared storage.
	refCount atomic.Int32
}

// Payload is a reference-counted, copy-on-write tuple of typed fields. The
// zero value is not usable; construct one with New. Payload is intended to
// be passed by value — it is a thin handle around shared storage.
type Payload struct {
	data *storage
}

// New constructs a Payload from the given ordered field values. The
// resulting Payload has a fresh, uniquely-owned storage (refCount == 1).
func New(fields ...any) Payload {
	s := &storage{fields: append([]any(nil), fields...)}
	s.refCount.Store(1)
	return Payload{data: s}
}

// Len returns the number of fields in the tuple.
func (p Payload) Len() int {
	if p.data == nil {
		return 0
	}
	return len(p.data.fields)
}

// TypeAt returns the reflect.Type of the field at index i, or nil with a
// non-nil error if the index is out of range.
func (p Payload) TypeAt(i int) (reflect.Type, error) {
	if i < 0 || i >= p.Len() {
		return nil, &ErrIndexOutOfRange{Index: i, Len: p.Len()}
	}
	v := p.data.fields[i]
	if v == nil {
		return nil, nil
	}
	return reflect.TypeOf(v), nil
}

// Raw returns the untyped value stored at index i. Most callers should
// prefer the generic Get accessor, which also validates the field's type.
func (p Payload) Raw(i int) (any, error) {
	if i < 0 || i >= p.Len() {
		return nil, &ErrIndexOutOfRange{Index: i, Len: p.Len()}
	}
	return p.data.fields[i], nil
}

// Clone returns a new Payload sharing the same underlying storage as p.
// Clone is O(1): it only bumps a reference count. Per the COW contract,
// neither p nor the returned clone observes a mutation made through the
// other — the first mutation through either handle allocates a private
// copy of the whole tuple before writing (see Set).
func (p Payload) Clone() Payload {
	if p.data == nil {
		return p
	}
	p.data.refCount.Add(1)
	return Payload{data: p.data}
}

// Get reads the field at index i as type T. It returns ErrTypeMismatch if
// the stored field is not assignable to T, and ErrIndexOutOfRange if i is
// out of bounds.
func Get[T any](p Payload, i int) (T, error) {
	var zero T
	if i < 0 || i >= p.Len() {
		return zero, &ErrIndexOutOfRange{Index: i, Len: p.Len()}
	}
	v := p.data.fields[i]
	typed, ok := v.(T)
	if !ok {
		return zero, &ErrTypeMismatch{
			Index: i,
			Want:  reflect.TypeOf(zero),
			Have:  reflect.TypeOf(v),
		}
	}
	return typed, nil
}

// ensureUnique performs the copy-on-write step: if this Payload's storage
// is shared with any other clone, it is replaced with a private copy of
// the field slice before the caller mutates it. The semantic unit of
// mutation is the whole tuple, not the individual field, matching the
// teacher's "logical copy" discipline for shared resources.
func (p *Payload) ensureUnique() {
	if p.data.refCount.Load() <= 1 {
		return
	}

	newFields := append([]any(nil), p.data.fields...)
	p.data.refCount.Add(-1)

	newStorage := &storage{fields: newFields}
	newStorage.refCount.Store(1)
	p.data = newStorage
}

// Set mutates the field at index i to v, performing a copy-on-write clone
// of the whole tuple first if this Payload's storage is currently shared.
// It returns ErrIndexOutOfRange if i is out of bounds.
func (p *Payload) Set(i int, v any) error {
	if i < 0 || i >= p.Len() {
		return &ErrIndexOutOfRange{Index: i, Len: p.Len()}
	}
	p.ensureUnique()
	p.data.fields[i] = v
	return nil
}

// IsShared reports whether this Payload's storage currently has more than
// one owning handle. It is primarily useful for tests asserting COW
// isolation (spec invariant: "after clone, mutation through one does not
// observe through the other").
func (p Payload) IsShared() bool {
	return p.data != nil && p.data.refCount.Load() > 1
}

// Fields returns a defensive copy of the tuple's values, useful for
// logging or round-tripping through an external inspector.
func (p Payload) Fields() []any {
	out := make([]any, p.Len())
	copy(out, p.data.fields)
	return out
}
