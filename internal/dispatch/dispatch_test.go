package dispatch

import (
	"fmt"
	"reflect"
	"strconv"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noOpts struct{}

type celsius float64

type labeled struct{ name string }

func (l labeled) String() string { return "labeled:" + l.name }

func newIntTable() *Table[int, noOpts] {
	t := New[int, noOpts]("Int")
	Register(t, func(v int, _ noOpts) (int, error) { return v, nil })
	Register(t, func(v string, _ noOpts) (int, error) { return strconv.Atoi(v) })
	return t
}

func TestConvertExactType(t *testing.T) {
	tbl := newIntTable()

	got, err := tbl.Convert(42, noOpts{})
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	got, err = tbl.Convert("17", noOpts{})
	require.NoError(t, err)
	assert.Equal(t, 17, got)
}

func TestConvertUnregistered(t *testing.T) {
	tbl := newIntTable()

	for _, v := range []any{3.5, celsius(2), []int{1}, nil} {
		_, err := tbl.Convert(v, noOpts{})
		require.Error(t, err, "value %v", v)
		assert.True(t, errors.Is(err, ErrUnconvertible), "value %v: %v", v, err)
	}

	_, err := tbl.Convert(celsius(2), noOpts{})
	assert.Contains(t, err.Error(), "dispatch.celsius")
	assert.Contains(t, err.Error(), "Int")
}

func TestRegisterExtendsTable(t *testing.T) {
	tbl := newIntTable()
	require.False(t, tbl.Registered(celsius(21)))

	Register(tbl, func(v celsius, _ noOpts) (int, error) { return int(v), nil })

	got, err := tbl.Convert(celsius(21.7), noOpts{})
	require.NoError(t, err)
	assert.Equal(t, 21, got)

	// Unrelated types keep failing.
	_, err = tbl.Convert(1.5, noOpts{})
	assert.True(t, errors.Is(err, ErrUnconvertible))
}

func TestRegisterTypesMultiple(t *testing.T) {
	tbl := New[string, noOpts]("Text")
	tbl.RegisterTypes(func(v any, _ noOpts) (string, error) {
		return fmt.Sprintf("%v", v), nil
	}, reflect.TypeOf((*int)(nil)).Elem(), reflect.TypeOf((*float64)(nil)).Elem(), reflect.TypeOf((*bool)(nil)).Elem())

	for _, v := range []any{1, 2.5, true} {
		got, err := tbl.Convert(v, noOpts{})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("%v", v), got)
	}
}

func TestInterfaceFallback(t *testing.T) {
	tbl := New[string, noOpts]("Text")
	tbl.RegisterTypes(func(v any, _ noOpts) (string, error) {
		return v.(fmt.Stringer).String(), nil
	}, reflect.TypeOf((*fmt.Stringer)(nil)).Elem())

	got, err := tbl.Convert(labeled{name: "a"}, noOpts{})
	require.NoError(t, err)
	assert.Equal(t, "labeled:a", got)

	// An exact registration wins over the interface fallback.
	Register(tbl, func(v labeled, _ noOpts) (string, error) { return "exact:" + v.name, nil })
	got, err = tbl.Convert(labeled{name: "b"}, noOpts{})
	require.NoError(t, err)
	assert.Equal(t, "exact:b", got)
}

func TestFallbackOrder(t *testing.T) {
	type namer interface{ String() string }

	tbl := New[string, noOpts]("Text")
	tbl.RegisterTypes(func(any, noOpts) (string, error) { return "first", nil }, reflect.TypeOf((*fmt.Stringer)(nil)).Elem())
	tbl.RegisterTypes(func(any, noOpts) (string, error) { return "second", nil }, reflect.TypeOf((*namer)(nil)).Elem())

	got, err := tbl.Convert(labeled{}, noOpts{})
	require.NoError(t, err)
	assert.Equal(t, "first", got)
}

func TestConverterErrorPropagates(t *testing.T) {
	tbl := newIntTable()
	_, err := tbl.Convert("not a number", noOpts{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnconvertible))
}

func TestOptionsPassedThrough(t *testing.T) {
	type scale struct{ factor int }
	tbl := New[int, scale]("Scaled")
	Register(tbl, func(v int, o scale) (int, error) { return v * o.factor, nil })

	got, err := tbl.Convert(3, scale{factor: 4})
	require.NoError(t, err)
	assert.Equal(t, 12, got)
}
