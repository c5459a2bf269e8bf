// Package bounds holds the canonical bounding box and its polygon form.
package bounds

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/pspoerri/cfgeo/internal/affine"
)

// Bounds is a positional (min-x, min-y, max-x, max-y) box. Min <= max is
// not enforced; inverted or degenerate boxes are kept as given.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// FromSlice builds Bounds from four positional values.
func FromSlice(v []float64) (Bounds, bool) {
	if len(v) != 4 {
		return Bounds{}, false
	}
	return Bounds{MinX: v[0], MinY: v[1], MaxX: v[2], MaxY: v[3]}, true
}

// FromOrb converts an orb.Bound.
func FromOrb(b orb.Bound) Bounds {
	return Bounds{MinX: b.Min[0], MinY: b.Min[1], MaxX: b.Max[0], MaxY: b.Max[1]}
}

// FromTransform returns the extent covered by a width x height grid.
func FromTransform(t affine.Transform, width, height int) Bounds {
	w, h := float64(width), float64(height)
	b := Bounds{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, c := range [][2]float64{{0, 0}, {w, 0}, {w, h}, {0, h}} {
		x, y := t.Apply(c[0], c[1])
		b.MinX = math.Min(b.MinX, x)
		b.MinY = math.Min(b.MinY, y)
		b.MaxX = math.Max(b.MaxX, x)
		b.MaxY = math.Max(b.MaxY, y)
	}
	return b
}

// Slice returns the positional form.
func (b Bounds) Slice() []float64 {
	return []float64{b.MinX, b.MinY, b.MaxX, b.MaxY}
}

// Width returns MaxX - MinX.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns MaxY - MinY.
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// Orb returns the box as an orb.Bound.
func (b Bounds) Orb() orb.Bound {
	return orb.Bound{Min: orb.Point{b.MinX, b.MinY}, Max: orb.Point{b.MaxX, b.MaxY}}
}

// Polygon returns a single closed ring through the four corners:
// (min,min), (max,min), (max,max), (min,max), (min,min).
func (b Bounds) Polygon() orb.Polygon {
	return orb.Polygon{orb.Ring{
		{b.MinX, b.MinY},
		{b.MaxX, b.MinY},
		{b.MaxX, b.MaxY},
		{b.MinX, b.MaxY},
		{b.MinX, b.MinY},
	}}
}
