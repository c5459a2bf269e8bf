package dataset

import (
	"math"
	"reflect"
)

// Attrs is an insertion-ordered attribute mapping. The zero value is empty
// and ready to use.
type Attrs struct {
	keys []string
	m    map[string]any
}

// NewAttrs builds Attrs from alternating key, value arguments.
func NewAttrs(kv ...any) Attrs {
	var a Attrs
	for i := 0; i+1 < len(kv); i += 2 {
		a.Set(kv[i].(string), kv[i+1])
	}
	return a
}

// Get returns the value stored under key.
func (a Attrs) Get(key string) (any, bool) {
	v, ok := a.m[key]
	return v, ok
}

// Has reports whether key is present.
func (a Attrs) Has(key string) bool {
	_, ok := a.m[key]
	return ok
}

// String returns the value under key if it is a string.
func (a Attrs) String(key string) (string, bool) {
	s, ok := a.m[key].(string)
	return s, ok
}

// Set stores v under key. Existing keys keep their position.
func (a *Attrs) Set(key string, v any) {
	if a.m == nil {
		a.m = make(map[string]any)
	}
	if _, ok := a.m[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.m[key] = v
}

// Delete removes key.
func (a *Attrs) Delete(key string) {
	if _, ok := a.m[key]; !ok {
		return
	}
	delete(a.m, key)
	for i, k := range a.keys {
		if k == key {
			a.keys = append(a.keys[:i:i], a.keys[i+1:]...)
			break
		}
	}
}

// Update sets every attribute of o on a, in o's order.
func (a *Attrs) Update(o Attrs) {
	for _, k := range o.keys {
		a.Set(k, o.m[k])
	}
}

// Keys returns the keys in insertion order.
func (a Attrs) Keys() []string {
	return append([]string(nil), a.keys...)
}

func (a Attrs) Len() int { return len(a.keys) }

// Clone returns a copy with its own key list and map. Values are shared.
func (a Attrs) Clone() Attrs {
	var c Attrs
	c.Update(a)
	return c
}

// Map returns the attributes as a plain map.
func (a Attrs) Map() map[string]any {
	m := make(map[string]any, len(a.keys))
	for k, v := range a.m {
		m[k] = v
	}
	return m
}

// Missing returns the keys from want that are not present, in order.
func (a Attrs) Missing(want ...string) []string {
	var out []string
	for _, k := range want {
		if !a.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// NormalizeValue converts values to the types attributes have after a round
// trip through CF-JSON: integers that fit in int32 become int32, other
// numbers float64. A sequence becomes []int32 when every element is such an
// integer and []float64 otherwise; an empty numeric sequence is []float64.
// Arrays are treated like slices. Strings, byte slices and non-numeric
// sequences are returned unchanged.
func NormalizeValue(v any) any {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return v
	}
	switch kind := rv.Kind(); {
	case isNumberKind(kind):
		if i, ok := asInt32(rv); ok {
			return i
		}
		return toFloat(rv)
	case kind != reflect.Slice && kind != reflect.Array:
		return v
	case kind == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
		return v
	}
	n := rv.Len()
	if n == 0 {
		if isNumberKind(rv.Type().Elem().Kind()) {
			return []float64{}
		}
		return v
	}
	allInt := true
	for i := 0; i < n; i++ {
		e := unwrap(rv.Index(i))
		if !isNumberKind(e.Kind()) {
			return v
		}
		if _, ok := asInt32(e); !ok {
			allInt = false
		}
	}
	if allInt {
		out := make([]int32, n)
		for i := range out {
			out[i], _ = asInt32(unwrap(rv.Index(i)))
		}
		return out
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = toFloat(rv.Index(i))
	}
	return out
}

func unwrap(e reflect.Value) reflect.Value {
	for e.Kind() == reflect.Interface && !e.IsNil() {
		e = e.Elem()
	}
	return e
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// asInt32 reports whether e is an integer kind holding a value in int32
// range. Floats never qualify, even when integral.
func asInt32(e reflect.Value) (int32, bool) {
	switch e.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if i := e.Int(); i >= math.MinInt32 && i <= math.MaxInt32 {
			return int32(i), true
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if u := e.Uint(); u <= math.MaxInt32 {
			return int32(u), true
		}
	}
	return 0, false
}

func toFloat(e reflect.Value) float64 {
	e = unwrap(e)
	switch e.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(e.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(e.Uint())
	}
	return e.Float()
}

// Normalize applies NormalizeValue to every attribute.
func (a *Attrs) Normalize() {
	for _, k := range a.keys {
		a.m[k] = NormalizeValue(a.m[k])
	}
}
