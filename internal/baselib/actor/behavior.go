package actor

import (
	"reflect"
	"time"

	"github.com/roasbeef/greenroom/internal/baselib/payload"
)

// Case is one typed alternative in a Behavior: a fixed arity, a parameter
// type per positional field, and the function to invoke when a payload's
// field types are element-wise assignable to those parameters (spec.md
// §4.3). Case is produced by the Case0..Case3 generic constructors; callers
// outside this package never build one by hand.
type Case struct {
	paramTypes []reflect.Type
	invoke     func(ctx *HandleContext, p payload.Payload) (any, error)
}

// matches reports whether p's fields are element-wise assignable to c's
// declared parameter types.
func (c Case) matches(p payload.Payload) bool {
	if p.Len() != len(c.paramTypes) {
		return false
	}
	for i, want := range c.paramTypes {
		have, err := p.TypeAt(i)
		if err != nil {
			return false
		}
		if have == nil {
			// A nil field only matches a parameter type that can
			// hold nil (interface or pointer-like kinds).
			switch want.Kind() {
			case reflect.Interface, reflect.Ptr, reflect.Slice,
				reflect.Map, reflect.Chan, reflect.Func:
				continue
			default:
				return false
			}
		}
		if !have.AssignableTo(want) {
			return false
		}
	}
	return true
}

func typeOf[T any]() reflect.Type {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		// T is an interface type (e.g. `any`); reflect.TypeOf(nil)
		// loses the static type, so build it via a pointer trick.
		t = reflect.TypeOf((*T)(nil)).Elem()
	}
	return t
}

// Case0 builds a zero-argument Case: matches an empty payload.
func Case0[R any](fn func(ctx *HandleContext) (R, error)) Case {
	return Case{
		paramTypes: nil,
		invoke: func(ctx *HandleContext, _ payload.Payload) (any, error) {
			return fn(ctx)
		},
	}
}

// Case1 builds a one-argument Case.
func Case1[A, R any](fn func(ctx *HandleContext, a A) (R, error)) Case {
	return Case{
		paramTypes: []reflect.Type{typeOf[A]()},
		invoke: func(ctx *HandleContext, p payload.Payload) (any, error) {
			a, err := payload.Get[A](p, 0)
			if err != nil {
				return nil, err
			}
			return fn(ctx, a)
		},
	}
}

// Case2 builds a two-argument Case.
func Case2[A, B, R any](fn func(ctx *HandleContext, a A, b B) (R, error)) Case {
	return Case{
		paramTypes: []reflect.Type{typeOf[A](), typeOf[B]()},
		invoke: func(ctx *HandleContext, p payload.Payload) (any, error) {
			a, err := payload.Get[A](p, 0)
			if err != nil {
				return nil, err
			}
			b, err := payload.Get[B](p, 1)
			if err != nil {
				return nil, err
			}
			return fn(ctx, a, b)
		},
	}
}

// Case3 builds a three-argument Case.
func Case3[A, B, C, R any](fn func(ctx *HandleContext, a A, b B, c C) (R, error)) Case {
	return Case{
		paramTypes: []reflect.Type{typeOf[A](), typeOf[B](), typeOf[C]()},
		invoke: func(ctx *HandleContext, p payload.Payload) (any, error) {
			a, err := payload.Get[A](p, 0)
			if err != nil {
				return nil, err
			}
			b, err := payload.Get[B](p, 1)
			if err != nil {
				return nil, err
			}
			c, err := payload.Get[C](p, 2)
			if err != nil {
				return nil, err
			}
			return fn(ctx, a, b, c)
		},
	}
}

// DefaultPolicy governs what happens to an envelope that matches no Case.
// Under DefaultDrop, DefaultReflect and DefaultPrintAndDrop, an unmatched
// request (non-zero correlation id) is also answered with an
// unexpected_message error.
type DefaultPolicy int

const (
	// DefaultDrop discards the envelope.
	DefaultDrop DefaultPolicy = iota

	// DefaultSkip moves the envelope to the actor's stash, to be
	// replayed once a future behavior installs a matching Case
	// (spec.md §4.2's "stashed rematch" scenario).
	DefaultSkip

	// DefaultReflect invokes a user-supplied fallback function with the
	// raw payload but does not terminate the actor.
	DefaultReflect

	// DefaultReflectAndQuit invokes the fallback function, then
	// terminates the actor with ExitCodeNormal.
	DefaultReflectAndQuit

	// DefaultPrintAndDrop logs the actor id and the unmatched payload's
	// field count at Warn level and discards the envelope.
	DefaultPrintAndDrop
)

// Behavior is an ordered, typed list of Cases plus an optional inactivity
// timeout (spec.md §3, §4.3). The zero Behavior matches nothing and always
// falls through to its default policy.
type Behavior struct {
	cases []Case

	policy   DefaultPolicy
	fallback func(ctx *HandleContext, p payload.Payload) error

	timeout   time.Duration
	onTimeout func(ctx *HandleContext) error
}

// NewBehavior builds a Behavior trying cases in the given order, first
// match wins, with DefaultDrop as its unmatched-envelope policy.
func NewBehavior(cases ...Case) *Behavior {
	return &Behavior{cases: cases, policy: DefaultDrop}
}

// WithDefault sets the policy applied when no Case matches. fallback is
// only invoked for DefaultReflect and DefaultReflectAndQuit.
func (b *Behavior) WithDefault(policy DefaultPolicy,
	fallback func(ctx *HandleContext, p payload.Payload) error) *Behavior {

	b.policy = policy
	b.fallback = fallback
	return b
}

// WithTimeout installs an inactivity timeout: if the mailbox remains empty
// for d, onTimeout is invoked exactly once. An incoming urgent envelope
// resets the window (spec.md §4.3).
func (b *Behavior) WithTimeout(d time.Duration,
	onTimeout func(ctx *HandleContext) error) *Behavior {

	b.timeout = d
	b.onTimeout = onTimeout
	return b
}

// OrElse returns a new Behavior trying b's cases first, then other's,
// without reordering either list (spec.md §3's "a.or_else(b)"). The
// combined Behavior's default policy and fallback are always b's; its
// timeout is b's, or other's when b has no timeout set.
func (b *Behavior) OrElse(other *Behavior) *Behavior {
	combined := &Behavior{
		cases:     append(append([]Case(nil), b.cases...), other.cases...),
		policy:    b.policy,
		fallback:  b.fallback,
		timeout:   b.timeout,
		onTimeout: b.onTimeout,
	}
	if combined.timeout == 0 {
		combined.timeout = other.timeout
		combined.onTimeout = other.onTimeout
	}
	return combined
}

// match returns the first Case whose parameter types are element-wise
// assignable from p's field types, or false if none match.
func (b *Behavior) match(p payload.Payload) (Case, bool) {
	for _, c := range b.cases {
		if c.matches(p) {
			return c, true
		}
	}
	return Case{}, false
}
