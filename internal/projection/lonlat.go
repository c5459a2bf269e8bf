package projection

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/ctessum/geom/proj"

	"github.com/pspoerri/cfgeo/internal/bounds"
	"github.com/pspoerri/cfgeo/internal/crs"
)

// LonLat converts coordinates of one CRS to and from WGS 84
// longitude/latitude in degrees. Datum shifts are not applied.
type LonLat interface {
	ToWGS84(x, y float64) (lon, lat float64, err error)
	FromWGS84(lon, lat float64) (x, y float64, err error)
}

const wgs84Proj = "+proj=longlat +datum=WGS84 +no_defs"

// ToLonLat returns a converter between c and WGS 84 longitude/latitude.
// Swiss LV95 and Web Mercator use closed formulas; other methods ctessum
// implements go through its transformers.
func (d *Default) ToLonLat(c crs.CRS) (LonLat, error) {
	if err := requireCRS(c); err != nil {
		return nil, err
	}
	if c.IsGeographic() {
		return identity{}, nil
	}
	code := 0
	if a, ok := crs.LookupAuthority(c); ok && a.Name == crs.EPSG {
		code = a.Code
	}
	switch code {
	case 2056:
		return swissLV95{}, nil
	case 3857:
		return webMercator{}, nil
	}
	if !checkedMethods[projName(c)] {
		return nil, errors.WithHint(
			errors.Newf("no lon/lat conversion for %s", c.Method().WKT),
			"supported: geographic, EPSG:2056, EPSG:3857, "+
				"transverse mercator, mercator and lambert conformal conic")
	}
	src, err := proj.Parse(c.Proj4())
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", c)
	}
	dst, err := proj.Parse(wgs84Proj)
	if err != nil {
		return nil, errors.Wrap(err, "parsing WGS 84")
	}
	fwd, err := src.NewTransform(dst)
	if err != nil {
		return nil, errors.Wrapf(err, "transform from %s", c)
	}
	inv, err := dst.NewTransform(src)
	if err != nil {
		return nil, errors.Wrapf(err, "transform to %s", c)
	}
	return transformPair{fwd: fwd, inv: inv}, nil
}

// LonLatBounds converts b from c to WGS 84 through its corners.
func (d *Default) LonLatBounds(c crs.CRS, b bounds.Bounds) (bounds.Bounds, error) {
	ll, err := d.ToLonLat(c)
	if err != nil {
		return bounds.Bounds{}, err
	}
	out := bounds.Bounds{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	corners := [][2]float64{
		{b.MinX, b.MinY},
		{b.MinX, b.MaxY},
		{b.MaxX, b.MinY},
		{b.MaxX, b.MaxY},
	}
	for _, p := range corners {
		lon, lat, err := ll.ToWGS84(p[0], p[1])
		if err != nil {
			return bounds.Bounds{}, errors.Wrapf(err, "converting (%v, %v)", p[0], p[1])
		}
		out.MinX = math.Min(out.MinX, lon)
		out.MinY = math.Min(out.MinY, lat)
		out.MaxX = math.Max(out.MaxX, lon)
		out.MaxY = math.Max(out.MaxY, lat)
	}
	return out, nil
}

type identity struct{}

func (identity) ToWGS84(x, y float64) (float64, float64, error)       { return x, y, nil }
func (identity) FromWGS84(lon, lat float64) (float64, float64, error) { return lon, lat, nil }

type transformPair struct {
	fwd, inv proj.Transformer
}

func (t transformPair) ToWGS84(x, y float64) (float64, float64, error) { return t.fwd(x, y) }
func (t transformPair) FromWGS84(lon, lat float64) (float64, float64, error) {
	return t.inv(lon, lat)
}
