// Package dataset is a minimal in-memory model of gridded array data: named
// variables with dimensions, data and ordered attributes, grouped into
// arrays and datasets with coordinates.
package dataset

import (
	"slices"
)

// Variable is a named array. Shape holds one size per dimension; scalars
// have no dims. Data is a flat, row-major slice ([]float64, []int32 or
// []string) or a scalar (float64, int32 or string).
type Variable struct {
	Name  string
	Dims  []string
	Shape []int
	Data  any
	Attrs Attrs
}

// NewScalar returns a dimensionless variable.
func NewScalar(name string, data any, attrs Attrs) *Variable {
	return &Variable{Name: name, Data: data, Attrs: attrs}
}

// New1D returns a one-dimensional variable along dim.
func New1D(name, dim string, data []float64, attrs Attrs) *Variable {
	return &Variable{Name: name, Dims: []string{dim}, Shape: []int{len(data)}, Data: data, Attrs: attrs}
}

// Copy returns a shallow copy: dims, shape and attributes are fresh, data
// is shared.
func (v *Variable) Copy() *Variable {
	return &Variable{
		Name:  v.Name,
		Dims:  slices.Clone(v.Dims),
		Shape: slices.Clone(v.Shape),
		Data:  v.Data,
		Attrs: v.Attrs.Clone(),
	}
}

// HasDims reports whether every name is one of v's dimensions.
func (v *Variable) HasDims(names ...string) bool {
	for _, n := range names {
		if !slices.Contains(v.Dims, n) {
			return false
		}
	}
	return true
}

// Size returns the length of dimension dim, or -1.
func (v *Variable) Size(dim string) int {
	i := slices.Index(v.Dims, dim)
	if i < 0 || i >= len(v.Shape) {
		return -1
	}
	return v.Shape[i]
}

// Float64s returns 1-D numeric data as float64 values.
func (v *Variable) Float64s() ([]float64, bool) {
	switch d := v.Data.(type) {
	case []float64:
		return d, true
	case []float32:
		out := make([]float64, len(d))
		for i, x := range d {
			out[i] = float64(x)
		}
		return out, true
	case []int32:
		out := make([]float64, len(d))
		for i, x := range d {
			out[i] = float64(x)
		}
		return out, true
	case []int:
		out := make([]float64, len(d))
		for i, x := range d {
			out[i] = float64(x)
		}
		return out, true
	}
	return nil, false
}

// Coords is an ordered set of coordinate variables, unique by name.
type Coords []*Variable

// Get returns the coordinate named name.
func (c Coords) Get(name string) (*Variable, bool) {
	for _, v := range c {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// Set adds v, replacing a coordinate of the same name in place.
func (c *Coords) Set(v *Variable) {
	for i, old := range *c {
		if old.Name == v.Name {
			(*c)[i] = v
			return
		}
	}
	*c = append(*c, v)
}

// Copy returns a shallow copy of every coordinate.
func (c Coords) Copy() Coords {
	if c == nil {
		return nil
	}
	out := make(Coords, len(c))
	for i, v := range c {
		out[i] = v.Copy()
	}
	return out
}

// DataArray is a single variable with its coordinates. The embedded
// variable's attributes are the array's attributes.
type DataArray struct {
	Variable
	Coords Coords
}

// Copy returns a shallow copy of the array and its coordinates.
func (a *DataArray) Copy() *DataArray {
	return &DataArray{Variable: *a.Variable.Copy(), Coords: a.Coords.Copy()}
}

// Dim is a named dimension and its length.
type Dim struct {
	Name string
	Size int
}

// Dataset is a collection of data variables sharing coordinates and
// dataset-level attributes.
type Dataset struct {
	Vars   []*Variable
	Coords Coords
	Attrs  Attrs
}

// Var returns the data variable named name.
func (d *Dataset) Var(name string) (*Variable, bool) {
	for _, v := range d.Vars {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// Variable returns the data variable or coordinate named name.
func (d *Dataset) Variable(name string) (*Variable, bool) {
	if v, ok := d.Var(name); ok {
		return v, true
	}
	return d.Coords.Get(name)
}

// DataArray returns data variable name with the dataset's coordinates.
// The array's dims, shape and attributes are copies; its data and the
// coordinate variables are shared with d.
func (d *Dataset) DataArray(name string) (*DataArray, bool) {
	v, ok := d.Var(name)
	if !ok {
		return nil, false
	}
	return &DataArray{Variable: *v.Copy(), Coords: d.Coords}, true
}

// Dims returns every dimension used by a coordinate or data variable, in
// order of first use.
func (d *Dataset) Dims() []Dim {
	var dims []Dim
	seen := map[string]bool{}
	for _, group := range [][]*Variable{d.Coords, d.Vars} {
		for _, v := range group {
			for i, name := range v.Dims {
				if seen[name] || i >= len(v.Shape) {
					continue
				}
				seen[name] = true
				dims = append(dims, Dim{Name: name, Size: v.Shape[i]})
			}
		}
	}
	return dims
}

// Copy returns a shallow copy: every variable and attribute set is fresh,
// data is shared.
func (d *Dataset) Copy() *Dataset {
	out := &Dataset{Coords: d.Coords.Copy(), Attrs: d.Attrs.Clone()}
	for _, v := range d.Vars {
		out.Vars = append(out.Vars, v.Copy())
	}
	return out
}
