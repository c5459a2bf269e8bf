// Package dispatch implements an open, type-directed conversion table.
//
// A Table maps the runtime type of an input value to a converter producing
// one canonical output type. Concrete types are matched exactly; interface
// types act as fallbacks and are tried in registration order when no exact
// entry exists. Tables are meant to be filled once during startup and then
// only read: Convert is safe for concurrent use as long as nothing registers
// at the same time.
package dispatch

import (
	"reflect"

	"github.com/cockroachdb/errors"
)

// ErrUnconvertible is returned when no converter applies to an input type.
var ErrUnconvertible = errors.New("unconvertible type")

// Func converts an arbitrary input into T using options O.
type Func[T, O any] func(v any, opts O) (T, error)

// Table is a conversion table for a single target kind.
type Table[T, O any] struct {
	kind      string
	exact     map[reflect.Type]Func[T, O]
	fallbacks []fallback[T, O]
}

type fallback[T, O any] struct {
	iface reflect.Type
	fn    Func[T, O]
}

// New returns an empty table. kind names the target in error messages
// (e.g. "CRS", "Transform").
func New[T, O any](kind string) *Table[T, O] {
	return &Table[T, O]{
		kind:  kind,
		exact: make(map[reflect.Type]Func[T, O]),
	}
}

// Kind returns the target kind name.
func (t *Table[T, O]) Kind() string { return t.kind }

// RegisterTypes binds fn to every type in types. Interface types are added
// to the fallback list; registering a type twice replaces the converter.
func (t *Table[T, O]) RegisterTypes(fn Func[T, O], types ...reflect.Type) {
	for _, rt := range types {
		if rt == nil {
			continue
		}
		if rt.Kind() == reflect.Interface {
			t.addFallback(rt, fn)
			continue
		}
		t.exact[rt] = fn
	}
}

func (t *Table[T, O]) addFallback(rt reflect.Type, fn Func[T, O]) {
	for i := range t.fallbacks {
		if t.fallbacks[i].iface == rt {
			t.fallbacks[i].fn = fn
			return
		}
	}
	t.fallbacks = append(t.fallbacks, fallback[T, O]{iface: rt, fn: fn})
}

// Register binds a typed converter to the input type In.
func Register[In, T, O any](t *Table[T, O], fn func(In, O) (T, error)) {
	t.RegisterTypes(func(v any, opts O) (T, error) {
		in, ok := v.(In)
		if !ok {
			var zero T
			return zero, t.unconvertible(v)
		}
		return fn(in, opts)
	}, reflect.TypeOf((*In)(nil)).Elem())
}

// Lookup returns the converter that would handle v.
func (t *Table[T, O]) Lookup(v any) (Func[T, O], bool) {
	if v == nil {
		return nil, false
	}
	rt := reflect.TypeOf(v)
	if fn, ok := t.exact[rt]; ok {
		return fn, true
	}
	for _, fb := range t.fallbacks {
		if rt.Implements(fb.iface) {
			return fb.fn, true
		}
	}
	return nil, false
}

// Registered reports whether v has an applicable converter.
func (t *Table[T, O]) Registered(v any) bool {
	_, ok := t.Lookup(v)
	return ok
}

// Convert converts v with the converter registered for its runtime type.
func (t *Table[T, O]) Convert(v any, opts O) (T, error) {
	fn, ok := t.Lookup(v)
	if !ok {
		var zero T
		return zero, t.unconvertible(v)
	}
	return fn(v, opts)
}

func (t *Table[T, O]) unconvertible(v any) error {
	return errors.Mark(
		errors.Newf("don't know how to convert type %T to %s", v, t.kind),
		ErrUnconvertible,
	)
}
