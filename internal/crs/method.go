package crs

import "strings"

// GeographicMethod is the CF grid mapping name of geographic systems.
const GeographicMethod = "latitude_longitude"

// Param describes one projection parameter and its names in each notation.
type Param struct {
	WKT         string   // canonical WKT1 parameter name
	WKTAlias    []string // other accepted WKT1 names
	Proj        string   // Proj key
	ProjAlias   []string // other accepted Proj keys
	CF          string   // CF grid mapping attribute
	Default     float64
	DefaultFrom string // WKT name of the parameter whose value is the default
}

// Method is a map projection method.
type Method struct {
	CF        string   // CF grid_mapping_name
	WKT       string   // canonical WKT1 PROJECTION name
	WKTAlias  []string // other accepted PROJECTION names
	Proj      string   // Proj +proj value
	ProjAlias []string
	Params    []Param
	Ignore    []string // WKT parameters accepted and dropped
}

// Param returns the parameter with the given canonical WKT name.
func (m *Method) Param(wkt string) (Param, bool) {
	for _, p := range m.Params {
		if p.WKT == wkt {
			return p, true
		}
	}
	return Param{}, false
}

func (m *Method) wktParam(name string) (Param, bool) {
	key := normName(name)
	for _, p := range m.Params {
		if normName(p.WKT) == key {
			return p, true
		}
		for _, a := range p.WKTAlias {
			if normName(a) == key {
				return p, true
			}
		}
	}
	return Param{}, false
}

func (m *Method) ignored(name string) bool {
	key := normName(name)
	for _, n := range m.Ignore {
		if normName(n) == key {
			return true
		}
	}
	return false
}

var (
	falseEasting  = Param{WKT: "false_easting", Proj: "x_0", CF: "false_easting"}
	falseNorthing = Param{WKT: "false_northing", Proj: "y_0", CF: "false_northing"}
)

// Supported projection methods.
var (
	TransverseMercator = &Method{
		CF:       "transverse_mercator",
		WKT:      "Transverse_Mercator",
		WKTAlias: []string{"Transverse Mercator", "Gauss_Kruger"},
		Proj:     "tmerc",
		Params: []Param{
			{WKT: "latitude_of_origin", Proj: "lat_0", CF: "latitude_of_projection_origin"},
			{WKT: "central_meridian", Proj: "lon_0", CF: "longitude_of_central_meridian"},
			{WKT: "scale_factor", Proj: "k", ProjAlias: []string{"k_0"}, CF: "scale_factor_at_central_meridian", Default: 1},
			falseEasting,
			falseNorthing,
		},
	}
	Mercator1SP = &Method{
		CF:       "mercator",
		WKT:      "Mercator_1SP",
		WKTAlias: []string{"Mercator"},
		Proj:     "merc",
		Params: []Param{
			{WKT: "central_meridian", Proj: "lon_0", CF: "longitude_of_projection_origin"},
			{WKT: "scale_factor", Proj: "k", ProjAlias: []string{"k_0"}, CF: "scale_factor_at_projection_origin", Default: 1},
			falseEasting,
			falseNorthing,
		},
		Ignore: []string{"latitude_of_origin"},
	}
	Mercator2SP = &Method{
		CF:   "mercator",
		WKT:  "Mercator_2SP",
		Proj: "merc",
		Params: []Param{
			{WKT: "standard_parallel_1", Proj: "lat_ts", CF: "standard_parallel"},
			{WKT: "central_meridian", Proj: "lon_0", CF: "longitude_of_projection_origin"},
			falseEasting,
			falseNorthing,
		},
		Ignore: []string{"latitude_of_origin"},
	}
	LambertConformalConic = &Method{
		CF:       "lambert_conformal_conic",
		WKT:      "Lambert_Conformal_Conic_2SP",
		WKTAlias: []string{"Lambert_Conformal_Conic"},
		Proj:     "lcc",
		Params: []Param{
			{WKT: "standard_parallel_1", Proj: "lat_1", CF: "standard_parallel"},
			{WKT: "standard_parallel_2", Proj: "lat_2", CF: "standard_parallel", DefaultFrom: "standard_parallel_1"},
			{WKT: "latitude_of_origin", Proj: "lat_0", CF: "latitude_of_projection_origin"},
			{WKT: "central_meridian", Proj: "lon_0", CF: "longitude_of_central_meridian"},
			falseEasting,
			falseNorthing,
		},
	}
	AlbersEqualArea = &Method{
		CF:       "albers_conical_equal_area",
		WKT:      "Albers_Conic_Equal_Area",
		WKTAlias: []string{"Albers"},
		Proj:     "aea",
		Params: []Param{
			{WKT: "standard_parallel_1", Proj: "lat_1", CF: "standard_parallel"},
			{WKT: "standard_parallel_2", Proj: "lat_2", CF: "standard_parallel", DefaultFrom: "standard_parallel_1"},
			{WKT: "latitude_of_center", WKTAlias: []string{"latitude_of_origin"}, Proj: "lat_0", CF: "latitude_of_projection_origin"},
			{WKT: "longitude_of_center", WKTAlias: []string{"central_meridian"}, Proj: "lon_0", CF: "longitude_of_central_meridian"},
			falseEasting,
			falseNorthing,
		},
	}
	LambertAzimuthalEqualArea = &Method{
		CF:   "lambert_azimuthal_equal_area",
		WKT:  "Lambert_Azimuthal_Equal_Area",
		Proj: "laea",
		Params: []Param{
			{WKT: "latitude_of_center", WKTAlias: []string{"latitude_of_origin"}, Proj: "lat_0", CF: "latitude_of_projection_origin"},
			{WKT: "longitude_of_center", WKTAlias: []string{"central_meridian"}, Proj: "lon_0", CF: "longitude_of_projection_origin"},
			falseEasting,
			falseNorthing,
		},
	}
	ObliqueMercator = &Method{
		CF:        "oblique_mercator",
		WKT:       "Hotine_Oblique_Mercator_Azimuth_Center",
		WKTAlias:  []string{"Oblique_Mercator", "Swiss_Oblique_Cylindrical"},
		Proj:      "omerc",
		ProjAlias: []string{"somerc"},
		Params: []Param{
			{WKT: "latitude_of_center", Proj: "lat_0", CF: "latitude_of_projection_origin"},
			{WKT: "longitude_of_center", Proj: "lonc", ProjAlias: []string{"lon_0"}, CF: "longitude_of_projection_origin"},
			{WKT: "azimuth", Proj: "alpha", CF: "azimuth_of_central_line", Default: 90},
			{WKT: "scale_factor", Proj: "k", ProjAlias: []string{"k_0"}, CF: "scale_factor_at_projection_origin", Default: 1},
			falseEasting,
			falseNorthing,
		},
		Ignore: []string{"rectified_grid_angle"},
	}
)

// Methods lists every supported projection method.
var Methods = []*Method{
	TransverseMercator,
	Mercator1SP,
	Mercator2SP,
	LambertConformalConic,
	AlbersEqualArea,
	LambertAzimuthalEqualArea,
	ObliqueMercator,
}

// methodByWKT finds a method by WKT PROJECTION name.
func methodByWKT(name string) (*Method, bool) {
	key := normName(name)
	for _, m := range Methods {
		if normName(m.WKT) == key {
			return m, true
		}
		for _, a := range m.WKTAlias {
			if normName(a) == key {
				return m, true
			}
		}
	}
	return nil, false
}

// methodByProj finds a method by Proj name. Mercator resolves to the 1SP
// variant; callers switch to 2SP when lat_ts is present.
func methodByProj(name string) (*Method, bool) {
	name = strings.ToLower(name)
	for _, m := range Methods {
		if m.Proj == name {
			return m, true
		}
		for _, a := range m.ProjAlias {
			if a == name {
				return m, true
			}
		}
	}
	return nil, false
}

// normName folds case, spaces and underscores so "Transverse Mercator"
// matches "transverse_mercator".
func normName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
