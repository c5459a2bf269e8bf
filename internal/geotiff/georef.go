// Package geotiff reads the georeferencing of GeoTIFF files: raster size,
// EPSG code and geotransform. Pixel data is never decoded.
package geotiff

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/pspoerri/cfgeo/internal/affine"
	"github.com/pspoerri/cfgeo/internal/bounds"
	"github.com/pspoerri/cfgeo/internal/crs"
)

// ErrNotGeoreferenced marks a TIFF without a usable geotransform or CRS.
var ErrNotGeoreferenced = errors.New("not georeferenced")

// Georef is the georeferencing of a GeoTIFF's full-resolution image.
type Georef struct {
	Width, Height int
	EPSG          int // 0 if unknown or user-defined
	Transform     affine.Transform
	PixelIsPoint  bool
	Citation      string
}

// Read parses georeferencing from a TIFF stream.
func Read(r io.ReadSeeker) (*Georef, error) {
	d, err := readFirstIFD(r)
	if err != nil {
		return nil, err
	}
	keys := parseGeoKeys(d.GeoKeys, d.GeoASCIIParams)
	g := &Georef{
		Width:        int(d.Width),
		Height:       int(d.Height),
		EPSG:         keys.EPSG(),
		PixelIsPoint: keys.RasterType == rasterPixelIsPoint,
		Citation:     keys.Citation,
	}
	t, ok, err := modelTransform(d)
	if err != nil {
		return nil, err
	}
	if ok {
		if g.PixelIsPoint {
			// Tie points reference pixel centres.
			t = t.Translate(-0.5, -0.5)
		}
		g.Transform = t
	}
	return g, nil
}

// modelTransform derives the geotransform from ModelTransformation, or
// from a single tie point plus pixel scale.
func modelTransform(d ifd) (affine.Transform, bool, error) {
	if m := d.ModelTransformation; len(m) > 0 {
		if len(m) != 16 {
			return affine.Transform{}, false, errors.Newf("ModelTransformation has %d values, want 16", len(m))
		}
		return affine.Transform{A: m[0], B: m[1], C: m[3], D: m[4], E: m[5], F: m[7]}, true, nil
	}
	if len(d.ModelTiepoint) < 6 || len(d.ModelPixelScale) < 2 {
		return affine.Transform{}, false, nil
	}
	if len(d.ModelTiepoint) > 6 {
		return affine.Transform{}, false, errors.Newf("%d tie points; only a single tie point is supported", len(d.ModelTiepoint)/6)
	}
	// ModelTiepoint: [I, J, K, X, Y, Z] maps pixel (I, J) to (X, Y).
	sx, sy := d.ModelPixelScale[0], d.ModelPixelScale[1]
	tp := d.ModelTiepoint
	return affine.Transform{
		A: sx, C: tp[3] - tp[0]*sx,
		E: -sy, F: tp[4] + tp[1]*sy,
	}, true, nil
}

// Open reads the georeferencing of a GeoTIFF file. When the file has no
// model transform, a world file next to it supplies one.
func Open(path string) (*Georef, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	g, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if g.Transform == (affine.Transform{}) {
		if wf := FindWorldFile(path); wf != "" {
			w, err := ReadWorldFile(wf)
			if err != nil {
				return nil, err
			}
			g.Transform = w.Transform()
		}
	}
	return g, nil
}

// HasTransform reports whether a geotransform was found.
func (g *Georef) HasTransform() bool {
	return g.Transform.Determinant() != 0
}

// Bounds returns the extent of the raster in its CRS.
func (g *Georef) Bounds() (bounds.Bounds, error) {
	if !g.HasTransform() {
		return bounds.Bounds{}, errors.Mark(errors.New("no geotransform"), ErrNotGeoreferenced)
	}
	return bounds.FromTransform(g.Transform, g.Width, g.Height), nil
}

// CRS resolves the EPSG code.
func (g *Georef) CRS() (crs.CRS, error) {
	if g.EPSG == 0 {
		return crs.CRS{}, errors.Mark(errors.New("no EPSG code in GeoKeys"), ErrNotGeoreferenced)
	}
	c, ok := crs.FromEPSG(g.EPSG)
	if !ok {
		return crs.CRS{}, errors.WithHint(
			errors.Mark(errors.Newf("EPSG:%d is not supported", g.EPSG), ErrNotGeoreferenced),
			"pass the CRS explicitly")
	}
	return c, nil
}

// GuessEPSG guesses a code from the coordinate ranges for files that carry
// none. Returns 0 if no known range fits.
func (g *Georef) GuessEPSG() int {
	b, err := g.Bounds()
	if err != nil {
		return 0
	}
	if b.MinX >= -180 && b.MaxX <= 360 && b.MinY >= -90 && b.MaxY <= 90 {
		return 4326
	}
	if b.MinX >= 2400000 && b.MaxX <= 2900000 && b.MinY >= 1000000 && b.MaxY <= 1400000 {
		return 2056
	}
	const merc = 20037508.342789244
	if b.MinX >= -merc && b.MaxX <= merc && b.MinY >= -merc && b.MaxY <= merc {
		return 3857
	}
	return 0
}
