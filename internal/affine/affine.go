// Package affine holds the canonical six-parameter geotransform.
package affine

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Transform maps grid indices to reference system coordinates:
//
//	x = A*col + B*row + C
//	y = D*col + E*row + F
type Transform struct {
	A, B, C float64
	D, E, F float64
}

// GDAL holds coefficients in GDAL GeoTransform order:
// origin x, pixel width, row rotation, origin y, column rotation, pixel height.
type GDAL [6]float64

// Algebraic holds coefficients in A, B, C, D, E, F order.
type Algebraic [6]float64

// Identity maps grid indices to themselves.
var Identity = Transform{A: 1, E: 1}

// FromGDAL converts GDAL-ordered coefficients.
func FromGDAL(g GDAL) Transform {
	return Transform{A: g[1], B: g[2], C: g[0], D: g[4], E: g[5], F: g[3]}
}

// FromAlgebraic converts algebraic-ordered coefficients.
func FromAlgebraic(a Algebraic) Transform {
	return Transform{A: a[0], B: a[1], C: a[2], D: a[3], E: a[4], F: a[5]}
}

// GDAL returns the coefficients in GDAL order.
func (t Transform) GDAL() GDAL {
	return GDAL{t.C, t.A, t.B, t.F, t.D, t.E}
}

// Algebraic returns the coefficients in algebraic order.
func (t Transform) Algebraic() Algebraic {
	return Algebraic{t.A, t.B, t.C, t.D, t.E, t.F}
}

// Apply maps grid position (col, row) to (x, y).
func (t Transform) Apply(col, row float64) (x, y float64) {
	return t.A*col + t.B*row + t.C, t.D*col + t.E*row + t.F
}

// IsRectilinear reports whether the transform has no rotation or shear.
func (t Transform) IsRectilinear() bool {
	return t.B == 0 && t.D == 0
}

// Translate returns t shifted by (dcol, drow) grid cells.
func (t Transform) Translate(dcol, drow float64) Transform {
	t.C, t.F = t.Apply(dcol, drow)
	return t
}

// Determinant returns A*E - B*D; zero means the transform is not invertible.
func (t Transform) Determinant() float64 {
	return t.A*t.E - t.B*t.D
}

// Invert returns the transform mapping (x, y) back to (col, row).
func (t Transform) Invert() (Transform, error) {
	det := t.Determinant()
	if det == 0 {
		return Transform{}, errors.Newf("transform %v is not invertible", t.Algebraic())
	}
	a, b, d, e := t.E/det, -t.B/det, -t.D/det, t.A/det
	return Transform{
		A: a, B: b, C: -(a*t.C + b*t.F),
		D: d, E: e, F: -(d*t.C + e*t.F),
	}, nil
}

// GDALString encodes t as a GDAL GeoTransform attribute: six numbers in
// GDAL order separated by single spaces, each in shortest round-trip form.
func (t Transform) GDALString() string {
	g := t.GDAL()
	parts := make([]string, len(g))
	for i, v := range g {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, " ")
}

// ParseGDALString decodes a GeoTransform attribute. Numbers may be separated
// by spaces or commas.
func ParseGDALString(s string) (Transform, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n'
	})
	if len(fields) != 6 {
		return Transform{}, errors.Newf("GeoTransform %q: expected 6 numbers, got %d", s, len(fields))
	}
	var g GDAL
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Transform{}, errors.Wrapf(err, "GeoTransform %q element %d", s, i)
		}
		g[i] = v
	}
	return FromGDAL(g), nil
}

// FromSlice builds a transform from six coefficients, or nine when the last
// row of the 3x3 matrix (0, 0, 1) is included. gdal selects GDAL ordering.
func FromSlice(v []float64, gdal bool) (Transform, error) {
	switch len(v) {
	case 6:
	case 9:
		if v[6] != 0 || v[7] != 0 || v[8] != 1 {
			return Transform{}, errors.Newf("3x3 transform must end in 0, 0, 1, got %v", v[6:])
		}
		if gdal {
			return Transform{}, errors.New("GDAL ordering has no 3x3 form")
		}
		v = v[:6]
	default:
		return Transform{}, errors.Newf("transform needs 6 coefficients, got %d", len(v))
	}
	var c [6]float64
	copy(c[:], v)
	if gdal {
		return FromGDAL(c), nil
	}
	return FromAlgebraic(c), nil
}
