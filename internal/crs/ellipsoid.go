package crs

import "strings"

// Ellipsoid is a reference ellipsoid. An inverse flattening of 0 denotes a sphere.
type Ellipsoid struct {
	Name          string
	SemiMajor     float64 // metres
	InvFlattening float64
}

// SemiMinor returns the semi-minor axis in metres.
func (e Ellipsoid) SemiMinor() float64 {
	if e.InvFlattening == 0 {
		return e.SemiMajor
	}
	return e.SemiMajor * (1 - 1/e.InvFlattening)
}

// IsSphere reports whether the ellipsoid has no flattening.
func (e Ellipsoid) IsSphere() bool { return e.InvFlattening == 0 }

// Datum is a geodetic datum: a named ellipsoid.
type Datum struct {
	Name      string
	Ellipsoid Ellipsoid
}

// Well-known ellipsoids.
var (
	WGS84     = Ellipsoid{Name: "WGS 84", SemiMajor: 6378137, InvFlattening: 298.257223563}
	GRS80     = Ellipsoid{Name: "GRS 1980", SemiMajor: 6378137, InvFlattening: 298.257222101}
	Clarke66  = Ellipsoid{Name: "Clarke 1866", SemiMajor: 6378206.4, InvFlattening: 294.9786982138982}
	Bessel    = Ellipsoid{Name: "Bessel 1841", SemiMajor: 6377397.155, InvFlattening: 299.1528128}
	Intl1924  = Ellipsoid{Name: "International 1924", SemiMajor: 6378388, InvFlattening: 297}
	Airy1830  = Ellipsoid{Name: "Airy 1830", SemiMajor: 6377563.396, InvFlattening: 299.3249646}
	Krassovsk = Ellipsoid{Name: "Krassowsky 1940", SemiMajor: 6378245, InvFlattening: 298.3}
	Sphere    = Ellipsoid{Name: "Normal Sphere (r=6370997)", SemiMajor: 6370997}
)

// ellipsoids maps Proj +ellps identifiers to ellipsoids.
var ellipsoids = map[string]Ellipsoid{
	"wgs84":  WGS84,
	"grs80":  GRS80,
	"clrk66": Clarke66,
	"bessel": Bessel,
	"intl":   Intl1924,
	"airy":   Airy1830,
	"krass":  Krassovsk,
	"sphere": Sphere,
}

// projEllps is the reverse of ellipsoids, used when exporting.
func projEllps(e Ellipsoid) (string, bool) {
	for id, known := range ellipsoids {
		if known == e {
			return id, true
		}
	}
	return "", false
}

// Well-known datums.
var (
	DatumWGS84  = Datum{Name: "WGS_1984", Ellipsoid: WGS84}
	DatumNAD83  = Datum{Name: "North_American_Datum_1983", Ellipsoid: GRS80}
	DatumNAD27  = Datum{Name: "North_American_Datum_1927", Ellipsoid: Clarke66}
	DatumETRS89 = Datum{Name: "European_Terrestrial_Reference_System_1989", Ellipsoid: GRS80}
	DatumCH1903 = Datum{Name: "CH1903+", Ellipsoid: Bessel}
)

// datums maps Proj +datum identifiers to datums.
var datums = map[string]Datum{
	"wgs84":   DatumWGS84,
	"nad83":   DatumNAD83,
	"nad27":   DatumNAD27,
	"ch1903+": DatumCH1903,
	"ch1903":  DatumCH1903,
}

// geogName returns the conventional geographic CRS name for a datum.
func geogName(d Datum) string {
	switch d.Name {
	case DatumWGS84.Name:
		return "WGS 84"
	case DatumNAD83.Name:
		return "NAD83"
	case DatumNAD27.Name:
		return "NAD27"
	case DatumETRS89.Name:
		return "ETRS89"
	case DatumCH1903.Name:
		return "CH1903+"
	}
	return "unknown"
}

// datumForEllipsoid returns a datum for an ellipsoid given without a datum name.
func datumForEllipsoid(e Ellipsoid) Datum {
	if e == WGS84 {
		return DatumWGS84
	}
	return Datum{Name: "unknown", Ellipsoid: e}
}

// Prime meridians in degrees east of Greenwich.
var primeMeridians = map[string]float64{
	"greenwich": 0,
	"paris":     2.33722917,
	"lisbon":    -9.131906111111,
	"bogota":    -74.08091666666667,
	"madrid":    -3.687938888888889,
	"rome":      12.45233333333333,
	"bern":      7.439583333333333,
	"brussels":  4.367975,
	"stockholm": 18.05827777777778,
	"oslo":      10.72291666666667,
}

func primeMeridianName(lon float64) string {
	for name, v := range primeMeridians {
		if v == lon {
			return strings.ToUpper(name[:1]) + name[1:]
		}
	}
	return "unknown"
}
