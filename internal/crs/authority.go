package crs

import (
	"fmt"
	"math"
)

// EPSG is the authority name used by FromEPSG.
const EPSG = "EPSG"

// authorityCodes are the fixed codes FromEPSG knows besides the UTM zones,
// in lookup order.
var authorityCodes = []int{4326, 4269, 4258, 3857, 3035, 5070, 2056}

var pseudoMercatorDatum = Datum{
	Name:      DatumWGS84.Name,
	Ellipsoid: Ellipsoid{Name: "WGS 84 (sphere)", SemiMajor: 6378137},
}

// FromEPSG returns the definition registered under an EPSG code.
// Returns false if the code is not supported.
func FromEPSG(code int) (CRS, bool) {
	var c CRS
	switch {
	case code == 4326:
		c = NewGeographic("WGS 84", DatumWGS84, 0)
	case code == 4269:
		c = NewGeographic("NAD83", DatumNAD83, 0)
	case code == 4258:
		c = NewGeographic("ETRS89", DatumETRS89, 0)
	case code == 3857:
		c = mustProjected("WGS 84 / Pseudo-Mercator", NewGeographic("WGS 84", pseudoMercatorDatum, 0), Mercator1SP, nil)
	case code == 3035:
		c = mustProjected("ETRS89-extended / LAEA Europe", NewGeographic("ETRS89", DatumETRS89, 0), LambertAzimuthalEqualArea, map[string]float64{
			"latitude_of_center":  52,
			"longitude_of_center": 10,
			"false_easting":       4321000,
			"false_northing":      3210000,
		})
	case code == 5070:
		c = mustProjected("NAD83 / Conus Albers", NewGeographic("NAD83", DatumNAD83, 0), AlbersEqualArea, map[string]float64{
			"standard_parallel_1": 29.5,
			"standard_parallel_2": 45.5,
			"latitude_of_center":  23,
			"longitude_of_center": -96,
		})
	case code == 2056:
		c = mustProjected("CH1903+ / LV95", NewGeographic("CH1903+", DatumCH1903, 0), ObliqueMercator, map[string]float64{
			"latitude_of_center":  46.9524055555556,
			"longitude_of_center": 7.43958333333333,
			"azimuth":             90,
			"scale_factor":        1,
			"false_easting":       2600000,
			"false_northing":      1200000,
		})
	case code > 32600 && code <= 32660:
		c = mustUTM(code-32600, false)
	case code > 32700 && code <= 32760:
		c = mustUTM(code-32700, true)
	default:
		return CRS{}, false
	}
	return c.WithAuthority(Authority{Name: EPSG, Code: code}), true
}

func mustProjected(name string, base CRS, m *Method, params map[string]float64) CRS {
	c, err := NewProjected(name, base, m, params, Metre)
	if err != nil {
		panic(fmt.Sprintf("crs: bad built-in definition %s: %v", name, err))
	}
	return c
}

func mustUTM(zone int, south bool) CRS {
	c, err := utmCRS(NewGeographic("WGS 84", DatumWGS84, 0), zone, south, Metre)
	if err != nil {
		panic(fmt.Sprintf("crs: bad built-in UTM zone %d: %v", zone, err))
	}
	return c
}

// LookupAuthority finds the authority code of c: its own tag if it has one,
// otherwise the first known definition equal to c. WGS 84 UTM zones are
// recognized from their parameters.
func LookupAuthority(c CRS) (Authority, bool) {
	if !c.authority.IsZero() {
		return c.authority, true
	}
	if c.IsZero() {
		return Authority{}, false
	}
	if code, ok := utmCode(c); ok {
		return Authority{Name: EPSG, Code: code}, true
	}
	// Datums sharing an ellipsoid (NAD83, ETRS89) are told apart by name
	// first, then by definition alone.
	for _, byName := range []bool{true, false} {
		for _, code := range authorityCodes {
			known, _ := FromEPSG(code)
			if byName && known.datum.Name != c.datum.Name {
				continue
			}
			if known.Equal(c) {
				return known.authority, true
			}
		}
	}
	return Authority{}, false
}

func utmCode(c CRS) (int, bool) {
	if c.kind != Projected || c.method != TransverseMercator {
		return 0, false
	}
	e := c.datum.Ellipsoid
	if !closeTo(e.SemiMajor, WGS84.SemiMajor) || !closeTo(e.InvFlattening, WGS84.InvFlattening) || c.pm != 0 {
		return 0, false
	}
	if !closeTo(c.unit.Factor, 1) || c.params["latitude_of_origin"] != 0 ||
		!closeTo(c.params["scale_factor"], 0.9996) || !closeTo(c.params["false_easting"], 500000) {
		return 0, false
	}
	cm := c.params["central_meridian"]
	zone := (cm + 183) / 6
	if zone != math.Trunc(zone) || zone < 1 || zone > 60 {
		return 0, false
	}
	switch fn := c.params["false_northing"]; {
	case fn == 0:
		return 32600 + int(zone), true
	case closeTo(fn, 10000000):
		return 32700 + int(zone), true
	}
	return 0, false
}
