// Package crs holds the canonical coordinate reference system value and its
// well-known-text and Proj string codecs.
package crs

import (
	"fmt"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats/scalar"
)

var (
	// ErrSyntax marks malformed WKT or Proj input.
	ErrSyntax = errors.New("crs syntax error")
	// ErrInvalid marks a definition that parsed but does not describe a usable CRS.
	ErrInvalid = errors.New("invalid crs definition")
)

// Kind distinguishes geographic from projected systems.
type Kind int

const (
	Geographic Kind = iota + 1
	Projected
)

func (k Kind) String() string {
	switch k {
	case Geographic:
		return "geographic"
	case Projected:
		return "projected"
	}
	return "unknown"
}

// Authority identifies a registered definition, e.g. EPSG:4326.
type Authority struct {
	Name string
	Code int
}

// IsZero reports whether no authority is set.
func (a Authority) IsZero() bool { return a.Name == "" || a.Code == 0 }

func (a Authority) String() string {
	if a.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s:%d", a.Name, a.Code)
}

// CRS is an immutable coordinate reference system definition. Two CRS values
// are Equal when their definitions match, regardless of names, authority or
// the text they were parsed from.
type CRS struct {
	kind      Kind
	name      string
	geogName  string
	datum     Datum
	pm        float64 // prime meridian, degrees east of Greenwich
	method    *Method
	params    map[string]float64 // keyed by Param.WKT
	unit      Unit
	authority Authority
}

// NewGeographic returns a geographic CRS on datum d.
func NewGeographic(name string, d Datum, primeMeridian float64) CRS {
	if name == "" {
		name = geogName(d)
	}
	return CRS{
		kind:     Geographic,
		name:     name,
		geogName: name,
		datum:    d,
		pm:       primeMeridian,
		unit:     Degree,
	}
}

// NewProjected returns a projected CRS. params are keyed by the canonical WKT
// parameter names of m; missing parameters take their defaults.
func NewProjected(name string, base CRS, m *Method, params map[string]float64, unit Unit) (CRS, error) {
	if m == nil {
		return CRS{}, errors.Mark(errors.New("projected crs requires a projection method"), ErrInvalid)
	}
	if base.kind != Geographic {
		return CRS{}, errors.Mark(errors.New("projected crs requires a geographic base"), ErrInvalid)
	}
	resolved := make(map[string]float64, len(m.Params))
	for _, p := range m.Params {
		if v, ok := params[p.WKT]; ok {
			resolved[p.WKT] = v
		}
	}
	for k := range params {
		if _, ok := m.Param(k); !ok {
			return CRS{}, errors.Mark(errors.Newf("parameter %q does not apply to %s", k, m.WKT), ErrInvalid)
		}
	}
	for _, p := range m.Params {
		if _, ok := resolved[p.WKT]; ok {
			continue
		}
		if p.DefaultFrom != "" {
			if v, ok := resolved[p.DefaultFrom]; ok {
				resolved[p.WKT] = v
				continue
			}
		}
		resolved[p.WKT] = p.Default
	}
	if unit.Factor == 0 {
		unit = Metre
	}
	if name == "" {
		name = "unknown"
	}
	return CRS{
		kind:     Projected,
		name:     name,
		geogName: base.geogName,
		datum:    base.datum,
		pm:       base.pm,
		method:   m,
		params:   resolved,
		unit:     canonicalLinearUnit(unit.Name, unit.Factor),
	}, nil
}

// WithAuthority returns a copy of c tagged with an authority code.
func (c CRS) WithAuthority(a Authority) CRS {
	c.authority = a
	return c
}

// IsZero reports whether c is the zero value.
func (c CRS) IsZero() bool { return c.kind == 0 }

func (c CRS) Kind() Kind { return c.kind }
func (c CRS) Name() string { return c.name }
func (c CRS) GeographicName() string { return c.geogName }
func (c CRS) Datum() Datum { return c.datum }
func (c CRS) Ellipsoid() Ellipsoid { return c.datum.Ellipsoid }
func (c CRS) PrimeMeridian() float64 { return c.pm }

// PrimeMeridianName returns the conventional name of the prime meridian,
// or "unknown".
func (c CRS) PrimeMeridianName() string { return primeMeridianName(c.pm) }
func (c CRS) Method() *Method { return c.method }
func (c CRS) Authority() Authority { return c.authority }
func (c CRS) IsGeographic() bool { return c.kind == Geographic }
func (c CRS) IsProjected() bool { return c.kind == Projected }

// LinearUnit returns the unit of projected coordinates. Geographic systems
// have no linear unit.
func (c CRS) LinearUnit() (Unit, bool) {
	if c.kind != Projected {
		return Unit{}, false
	}
	return c.unit, true
}

// Param returns a projection parameter by canonical WKT name.
func (c CRS) Param(wkt string) (float64, bool) {
	v, ok := c.params[wkt]
	return v, ok
}

// GridMappingName returns the CF grid_mapping_name.
func (c CRS) GridMappingName() string {
	if c.kind == Projected && c.method != nil {
		return c.method.CF
	}
	return GeographicMethod
}

// Base returns the geographic CRS a projected CRS is built on. For a
// geographic CRS it returns c without authority.
func (c CRS) Base() CRS {
	return CRS{
		kind:     Geographic,
		name:     c.geogName,
		geogName: c.geogName,
		datum:    c.datum,
		pm:       c.pm,
		unit:     Degree,
	}
}

// Equal reports whether c and o describe the same definition.
func (c CRS) Equal(o CRS) bool {
	if c.kind != o.kind {
		return false
	}
	if !c.sameGeodetic(o) {
		return false
	}
	if c.kind == Geographic {
		return true
	}
	if c.method != o.method {
		return false
	}
	if !closeTo(c.unit.Factor, o.unit.Factor) {
		return false
	}
	for _, p := range c.method.Params {
		if !closeTo(c.params[p.WKT], o.params[p.WKT]) {
			return false
		}
	}
	return true
}

func (c CRS) sameGeodetic(o CRS) bool {
	a, b := c.datum.Ellipsoid, o.datum.Ellipsoid
	return closeTo(a.SemiMajor, b.SemiMajor) &&
		closeTo(a.InvFlattening, b.InvFlattening) &&
		closeTo(c.pm, o.pm)
}

// Validate reports why c is not a usable definition, or nil.
func (c CRS) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return errors.Mark(errors.Newf(format, args...), ErrInvalid)
	}
	if c.kind != Geographic && c.kind != Projected {
		return invalid("crs has no kind")
	}
	e := c.datum.Ellipsoid
	if !(e.SemiMajor > 0) || math.IsInf(e.SemiMajor, 0) {
		return invalid("semi-major axis %v must be positive", e.SemiMajor)
	}
	if e.InvFlattening != 0 && !(e.InvFlattening > 1) || math.IsNaN(e.InvFlattening) || math.IsInf(e.InvFlattening, 0) {
		return invalid("inverse flattening %v out of range", e.InvFlattening)
	}
	if math.IsNaN(c.pm) || math.Abs(c.pm) > 180 {
		return invalid("prime meridian %v out of range", c.pm)
	}
	if c.kind == Geographic {
		return nil
	}
	if c.method == nil {
		return invalid("projected crs has no projection method")
	}
	if !(c.unit.Factor > 0) || math.IsInf(c.unit.Factor, 0) {
		return invalid("linear unit factor %v must be positive", c.unit.Factor)
	}
	for _, p := range c.method.Params {
		v, ok := c.params[p.WKT]
		if !ok {
			return invalid("missing parameter %s", p.WKT)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalid("parameter %s is not finite", p.WKT)
		}
		if isLatitude(p) && math.Abs(v) > 90 {
			return invalid("parameter %s=%v is not a latitude", p.WKT, v)
		}
		if isLongitude(p) && math.Abs(v) > 360 {
			return invalid("parameter %s=%v is not a longitude", p.WKT, v)
		}
	}
	if k, ok := c.params["scale_factor"]; ok && !(k > 0) {
		return invalid("scale factor %v must be positive", k)
	}
	return nil
}

func (c CRS) String() string {
	if !c.authority.IsZero() {
		return fmt.Sprintf("%s (%s)", c.name, c.authority)
	}
	return c.name
}

func isLatitude(p Param) bool {
	return strings.HasPrefix(p.WKT, "latitude") || strings.HasPrefix(p.WKT, "standard_parallel")
}

func isLongitude(p Param) bool {
	return strings.HasPrefix(p.WKT, "longitude") || p.WKT == "central_meridian"
}

func closeTo(a, b float64) bool {
	return scalar.EqualWithinAbsOrRel(a, b, 1e-9, 1e-10)
}
