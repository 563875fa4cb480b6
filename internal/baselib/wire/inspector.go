package wire

import "fmt"

// FieldOpt configures how a single field is presented to an Inspector. The
// zero value is a plain, always-present field with no special formatting.
type FieldOpt struct {
	// TypeName overrides the platform-neutral name reported for this
	// field; if empty, the field's registered type name (if any) or its
	// Go type name is used.
	TypeName string

	// HexFormatted marks an integer field that should be rendered in
	// hexadecimal rather than decimal when printed by a human-facing
	// Inspector.
	HexFormatted bool

	// Omittable marks a field that an Inspector may skip entirely
	// (e.g. a deprecated field kept only for backward compatibility).
	Omittable bool

	// OmittableIfEmpty marks a field that may be skipped when it holds
	// the empty value of its type (empty string, empty slice, zero
	// length).
	OmittableIfEmpty bool

	// OmittableIfNone marks a field that may be skipped when it holds
	// an absent optional value (e.g. a nil pointer or fn.Option in the
	// None state).
	OmittableIfNone bool

	// SaveCallback, if set, is invoked with the field's value before a
	// Writer persists it, letting a type normalize a value (e.g.
	// canonicalize a timestamp) only at the serialization boundary.
	SaveCallback func(v any) (any, error)

	// LoadCallback, if set, is invoked with the raw value a Reader
	// produced for this field, letting a type reconstruct its in-memory
	// representation (the inverse of SaveCallback).
	LoadCallback func(raw any) (any, error)
}

// Inspector is implemented by both writing and reading visitors. A
// registered type's Visit function calls Field once per field, in the same
// fixed order every time, so that a Writer's output and a Reader's input
// agree positionally. This is the core's only contract with an external
// serialization layer (spec.md §6): the core never marshals bytes itself.
type Inspector interface {
	// Field visits one field. For a writing Inspector, v is the
	// current value to record. For a reading Inspector, v is a pointer
	// the Inspector fills in with the decoded value. Field returns an
	// error to abort the visit (e.g. on a type mismatch or a failed
	// callback).
	Field(name string, v any, opt FieldOpt) error

	// Mode reports whether this Inspector is writing or reading.
	Mode() InspectorMode
}

// InspectorMode distinguishes a writing visit from a reading visit.
type InspectorMode int

const (
	// ModeWrite indicates the Inspector is recording field values out
	// of an in-memory value.
	ModeWrite InspectorMode = iota

	// ModeRead indicates the Inspector is populating an in-memory value
	// from previously recorded fields.
	ModeRead
)

// Writer is a minimal Inspector that records each visited field into an
// ordered slice of named values, in visit order. It is a reference
// implementation useful for tests and for any external transport that
// wants a simple, order-preserving intermediate representation before its
// own wire encoding.
type Writer struct {
	fields []WrittenField
}

// WrittenField is one field recorded by a Writer.
type WrittenField struct {
	Name  string
	Value any
	Opt   FieldOpt
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Mode implements Inspector.
func (w *Writer) Mode() InspectorMode { return ModeWrite }

// Field implements Inspector. It applies opt.SaveCallback, if set, before
// recording the (possibly empty or none) value — callers that set
// OmittableIfEmpty/OmittableIfNone are responsible for passing a value
// already in the state they want recorded; Writer itself never drops a
// field, since "omittable" is a hint to an external transport, not a
// constraint this in-memory representation enforces.
func (w *Writer) Field(name string, v any, opt FieldOpt) error {
	val := v
	if opt.SaveCallback != nil {
		saved, err := opt.SaveCallback(v)
		if err != nil {
			return fmt.Errorf("wire: save callback for field %q: %w",
				name, err)
		}
		val = saved
	}
	w.fields = append(w.fields, WrittenField{Name: name, Value: val, Opt: opt})
	return nil
}

// Fields returns the recorded fields in visit order.
func (w *Writer) Fields() []WrittenField {
	out := make([]WrittenField, len(w.fields))
	copy(out, w.fields)
	return out
}

// Reader is a minimal Inspector that replays a Writer's recorded fields
// back into pointers supplied by a type's Visit function, in the same
// fixed visit order.
type Reader struct {
	fields []WrittenField
	pos    int
}

// NewReader builds a Reader over previously written fields.
func NewReader(fields []WrittenField) *Reader {
	return &Reader{fields: fields}
}

// Mode implements Inspector.
func (r *Reader) Mode() InspectorMode { return ModeRead }

// Field implements Inspector. v must be a non-nil pointer to a type
// assignable from the recorded value. Fields are consumed strictly in
// order and name is not checked: reading in a different order than the one
// used to write fails only where a recorded value's type does not fit v
// (two fields of the same type are silently swapped), and reading past the
// last recorded field fails.
func (r *Reader) Field(name string, v any, opt FieldOpt) error {
	if r.pos >= len(r.fields) {
		return fmt.Errorf("wire: reader exhausted at field %q", name)
	}
	rec := r.fields[r.pos]
	r.pos++

	raw := rec.Value
	if opt.LoadCallback != nil {
		loaded, err := opt.LoadCallback(raw)
		if err != nil {
			return fmt.Errorf("wire: load callback for field %q: %w",
				name, err)
		}
		raw = loaded
	}
	return assign(v, raw, name)
}

func assign(dst any, src any, name string) error {
	switch p := dst.(type) {
	case *string:
		s, ok := src.(string)
		if !ok {
			return fmt.Errorf("wire: field %q: expected string, got %T", name, src)
		}
		*p = s
	case *int:
		n, ok := src.(int)
		if !ok {
			return fmt.Errorf("wire: field %q: expected int, got %T", name, src)
		}
		*p = n
	case *int64:
		n, ok := src.(int64)
		if !ok {
			return fmt.Errorf("wire: field %q: expected int64, got %T", name, src)
		}
		*p = n
	case *bool:
		b, ok := src.(bool)
		if !ok {
			return fmt.Errorf("wire: field %q: expected bool, got %T", name, src)
		}
		*p = b
	case *float64:
		f, ok := src.(float64)
		if !ok {
			return fmt.Errorf("wire: field %q: expected float64, got %T", name, src)
		}
		*p = f
	case *any:
		*p = src
	default:
		return fmt.Errorf("wire: field %q: unsupported destination type %T", name, dst)
	}
	return nil
}

// RoundTrip writes v's fields via visit, then immediately reads them back
// into out's fields via the same visit function, returning any error from
// either pass. It is the building block behind the package's round-trip
// tests (spec.md §8, "round-trip serialization").
func RoundTrip(visit func(v any, insp Inspector) error, v any, out any) error {
	w := NewWriter()
	if err := visit(v, w); err != nil {
		return fmt.Errorf("wire: write pass: %w", err)
	}
	r := NewReader(w.Fields())
	if err := visit(out, r); err != nil {
		return fmt.Errorf("wire: read pass: %w", err)
	}
	return nil
}
