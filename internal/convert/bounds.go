package convert

import (
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/paulmach/orb"
	"github.com/twpayne/go-geom"

	"github.com/pspoerri/cfgeo/internal/bounds"
	"github.com/pspoerri/cfgeo/internal/geotiff"
)

func (c *Converter) registerBounds() {
	RegisterBounds(c, func(v bounds.Bounds, _ BoundsOptions) (bounds.Bounds, error) { return v, nil })
	RegisterBounds(c, func(v [4]float64, _ BoundsOptions) (bounds.Bounds, error) {
		return bounds.Bounds{MinX: v[0], MinY: v[1], MaxX: v[2], MaxY: v[3]}, nil
	})
	RegisterBounds(c, func(v []float64, _ BoundsOptions) (bounds.Bounds, error) { return boundsFromSlice(v) })
	RegisterBounds(c, func(v []any, _ BoundsOptions) (bounds.Bounds, error) {
		f, err := toFloats(v)
		if err != nil {
			return bounds.Bounds{}, err
		}
		return boundsFromSlice(f)
	})
	RegisterBounds(c, func(v orb.Bound, _ BoundsOptions) (bounds.Bounds, error) { return boundsFromOrb(v) })
	RegisterBounds(c, func(g *geotiff.Georef, _ BoundsOptions) (bounds.Bounds, error) {
		if g == nil {
			return bounds.Bounds{}, errors.Mark(errors.New("nil *geotiff.Georef"), geotiff.ErrNotGeoreferenced)
		}
		return g.Bounds()
	})

	// Geometry fallbacks.
	RegisterBounds(c, func(g orb.Geometry, _ BoundsOptions) (bounds.Bounds, error) { return boundsFromOrb(g) })
	RegisterBounds(c, func(g geom.T, _ BoundsOptions) (bounds.Bounds, error) { return boundsFromGeom(g) })
}

func (c *Converter) registerBBox() {
	RegisterBBox(c, func(v bounds.Bounds, _ BoundsOptions) (orb.Polygon, error) { return v.Polygon(), nil })
	RegisterBBox(c, func(g *geotiff.Georef, _ BoundsOptions) (orb.Polygon, error) {
		return PolygonVia(c, g)
	})
	RegisterBBox(c, func(g orb.Geometry, _ BoundsOptions) (orb.Polygon, error) {
		b, err := boundsFromOrb(g)
		if err != nil {
			return nil, err
		}
		return b.Polygon(), nil
	})
	RegisterBBox(c, func(g geom.T, _ BoundsOptions) (orb.Polygon, error) {
		b, err := boundsFromGeom(g)
		if err != nil {
			return nil, err
		}
		return b.Polygon(), nil
	})
}

// PolygonVia converts v with the bounds table and returns the rectangle.
// Extensions use it to register a BBox converter for a type that already
// has a Bounds converter.
func PolygonVia(c *Converter, v any) (orb.Polygon, error) {
	b, err := c.boundsTable.Convert(v, BoundsOptions{})
	if err != nil {
		return nil, err
	}
	return b.Polygon(), nil
}

func boundsFromSlice(v []float64) (bounds.Bounds, error) {
	b, ok := bounds.FromSlice(v)
	if !ok {
		return bounds.Bounds{}, errors.Newf("bounds need 4 values (min-x, min-y, max-x, max-y), got %d", len(v))
	}
	return b, nil
}

func boundsFromOrb(g orb.Geometry) (bounds.Bounds, error) {
	if g == nil {
		return bounds.Bounds{}, errors.New("nil geometry")
	}
	b := g.Bound()
	if b.IsEmpty() {
		return bounds.Bounds{}, errors.Newf("empty %s has no extent", g.GeoJSONType())
	}
	return bounds.FromOrb(b), nil
}

func boundsFromGeom(g geom.T) (bounds.Bounds, error) {
	if isNilGeom(g) {
		return bounds.Bounds{}, errors.Newf("nil geometry %T", g)
	}
	if g.Empty() {
		return bounds.Bounds{}, errors.Newf("empty %T has no extent", g)
	}
	if gc, ok := g.(*geom.GeometryCollection); ok {
		return boundsFromCollection(gc)
	}
	b := g.Bounds()
	return bounds.Bounds{MinX: b.Min(0), MinY: b.Min(1), MaxX: b.Max(0), MaxY: b.Max(1)}, nil
}

// boundsFromCollection unions member extents. go-geom's own Bounds panics on
// nested collections.
func boundsFromCollection(gc *geom.GeometryCollection) (bounds.Bounds, error) {
	var out bounds.Bounds
	first := true
	for _, m := range gc.Geoms() {
		if isNilGeom(m) || m.Empty() {
			continue
		}
		b, err := boundsFromGeom(m)
		if err != nil {
			return bounds.Bounds{}, err
		}
		if first {
			out, first = b, false
			continue
		}
		out.MinX = min(out.MinX, b.MinX)
		out.MinY = min(out.MinY, b.MinY)
		out.MaxX = max(out.MaxX, b.MaxX)
		out.MaxY = max(out.MaxY, b.MaxY)
	}
	return out, nil
}

func isNilGeom(g geom.T) bool {
	if g == nil {
		return true
	}
	rv := reflect.ValueOf(g)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}
