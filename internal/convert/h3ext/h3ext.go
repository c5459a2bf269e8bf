// Package h3ext teaches a Converter about H3 cells. A cell converts to the
// lon/lat extent of its boundary.
package h3ext

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/paulmach/orb"
	"github.com/uber/h3-go/v4"

	"github.com/pspoerri/cfgeo/internal/bounds"
	"github.com/pspoerri/cfgeo/internal/convert"
)

// Register adds h3.Cell converters to the Bounds and BBox tables of c.
func Register(c *convert.Converter) {
	convert.RegisterBounds(c, func(cell h3.Cell, _ convert.BoundsOptions) (bounds.Bounds, error) {
		return CellBounds(cell)
	})
	convert.RegisterBBox(c, func(cell h3.Cell, _ convert.BoundsOptions) (orb.Polygon, error) {
		return convert.PolygonVia(c, cell)
	})
}

// CellBounds returns the extent of the cell boundary in degrees. Cells
// crossing the antimeridian are not split.
func CellBounds(cell h3.Cell) (bounds.Bounds, error) {
	if !cell.IsValid() {
		return bounds.Bounds{}, errors.Newf("invalid h3 cell %s", cell)
	}
	boundary, err := cell.Boundary()
	if err != nil {
		return bounds.Bounds{}, errors.Wrapf(err, "boundary of %s", cell)
	}
	if len(boundary) < 3 {
		return bounds.Bounds{}, errors.Newf("degenerate boundary for %s", cell)
	}
	b := bounds.Bounds{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, ll := range boundary {
		b.MinX = math.Min(b.MinX, ll.Lng)
		b.MinY = math.Min(b.MinY, ll.Lat)
		b.MaxX = math.Max(b.MaxX, ll.Lng)
		b.MaxY = math.Max(b.MaxY, ll.Lat)
	}
	return b, nil
}
