package cf

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pspoerri/cfgeo/internal/affine"
	"github.com/pspoerri/cfgeo/internal/crs"
	"github.com/pspoerri/cfgeo/internal/dataset"
	"github.com/pspoerri/cfgeo/internal/projection"
)

var globalTransform = affine.Transform{A: 0.1, C: -180, E: -0.1, F: 90}

func mustEPSG(t *testing.T, code int) crs.CRS {
	t.Helper()
	c, ok := crs.FromEPSG(code)
	require.True(t, ok, "FromEPSG(%d)", code)
	return c
}

func debugLogger(buf *bytes.Buffer) zerolog.Logger {
	return zerolog.New(buf).Level(zerolog.DebugLevel)
}

// stubService overrides selected answers of the default service.
type stubService struct {
	*projection.Default
	params  dataset.Attrs
	wktErr  error
	authErr error
}

func (s stubService) CFProjectionParams(c crs.CRS) (dataset.Attrs, error) {
	if s.params.Len() > 0 {
		return s.params.Clone(), nil
	}
	return s.Default.CFProjectionParams(c)
}

func (s stubService) WellKnownText(c crs.CRS) (string, error) {
	if s.wktErr != nil {
		return "", s.wktErr
	}
	return s.Default.WellKnownText(c)
}

func (s stubService) AuthorityCode(c crs.CRS) (string, bool, error) {
	if s.authErr != nil {
		return "", false, s.authErr
	}
	return s.Default.AuthorityCode(c)
}

func TestCreateGridMapping_WGS84(t *testing.T) {
	gm, err := CreateGridMapping(projection.New(), mustEPSG(t, 4326), globalTransform, "")
	require.NoError(t, err)

	assert.Equal(t, "crs", gm.Name)
	assert.Empty(t, gm.Dims)
	assert.Equal(t, int32(4326), gm.Data)

	get := func(k string) any {
		v, ok := gm.Attrs.Get(k)
		require.True(t, ok, k)
		return v
	}
	assert.Equal(t, "latitude_longitude", get(AttrGridMappingName))
	assert.Equal(t, "WGS 84", get(AttrLongName))
	assert.Equal(t, "-180 0.1 0 90 0 -0.1", get(AttrGeoTransform))
	assert.Equal(t, 6378137.0, get("semi_major_axis"))
	assert.Contains(t, get(AttrSpatialRef), `AUTHORITY["EPSG","4326"]`)

	keys := gm.Attrs.Keys()
	assert.Equal(t, []string{AttrGridMappingName, AttrLongName}, keys[:2])
	assert.Equal(t, []string{AttrSpatialRef, AttrGeoTransform}, keys[len(keys)-2:])
}

func TestCreateGridMapping_Projected(t *testing.T) {
	tr := affine.Transform{A: 30, C: 300000, E: -30, F: 5100000}
	gm, err := CreateGridMapping(projection.New(), mustEPSG(t, 32632), tr, "utm")
	require.NoError(t, err)

	assert.Equal(t, "utm", gm.Name)
	assert.Equal(t, int32(32632), gm.Data)
	want := map[string]any{
		"grid_mapping_name":                "transverse_mercator",
		"long_name":                        "WGS 84 / UTM zone 32N",
		"latitude_of_projection_origin":    0.0,
		"longitude_of_central_meridian":    9.0,
		"scale_factor_at_central_meridian": 0.9996,
		"false_easting":                    500000.0,
		"false_northing":                   0.0,
		"GeoTransform":                     "300000 30 0 5100000 0 -30",
	}
	got := gm.Attrs.Map()
	for k, v := range want {
		assert.Equal(t, v, got[k], k)
	}

	back, err := affine.ParseGDALString(got["GeoTransform"].(string))
	require.NoError(t, err)
	assert.Equal(t, tr, back)
}

func TestCreateGridMapping_UnknownAuthorityIsZero(t *testing.T) {
	custom, err := crs.ParseProj("+proj=tmerc +lon_0=11 +ellps=intl")
	require.NoError(t, err)

	var buf bytes.Buffer
	gm, err := CreateGridMapping(projection.New(), custom, globalTransform, "crs", WithLogger(debugLogger(&buf)))
	require.NoError(t, err)
	assert.Equal(t, int32(0), gm.Data)
	assert.Contains(t, buf.String(), "could not determine EPSG code")

	buf.Reset()
	svc := stubService{Default: projection.New(), authErr: errors.New("lookup failed")}
	gm, err = CreateGridMapping(svc, mustEPSG(t, 4326), globalTransform, "crs", WithLogger(debugLogger(&buf)))
	require.NoError(t, err)
	assert.Equal(t, int32(0), gm.Data)
	assert.Contains(t, buf.String(), "lookup failed")
}

func TestCreateGridMapping_NormalizesSequences(t *testing.T) {
	svc := stubService{
		Default: projection.New(),
		params: dataset.NewAttrs(
			"standard_parallel", [2]float64{30, 60},
			"some_ints", []any{1, 2, 3},
			"mixed", []any{1, 2.5},
			"scalar", 4.0,
		),
	}
	gm, err := CreateGridMapping(svc, mustEPSG(t, 4326), globalTransform, "crs")
	require.NoError(t, err)

	want := map[string]any{
		"standard_parallel": []float64{30, 60},
		"some_ints":         []int32{1, 2, 3},
		"mixed":             []float64{1, 2.5},
		"scalar":            4.0,
	}
	got := gm.Attrs.Map()
	for k, v := range want {
		if diff := cmp.Diff(v, got[k]); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", k, diff)
		}
	}

	gm, err = CreateGridMapping(projection.New(), mustEPSG(t, 5070), globalTransform, "crs")
	require.NoError(t, err)
	sp, _ := gm.Attrs.Get("standard_parallel")
	assert.Equal(t, []float64{29.5, 45.5}, sp)
}

func TestCreateGridMapping_SurvivesCFJSON(t *testing.T) {
	svc := stubService{
		Default: projection.New(),
		params: dataset.NewAttrs(
			"standard_parallel", []any{29.5, 45.5},
			"flags", []int{1, 2, 3},
			"zone", 32,
			"false_easting", 500000.0,
		),
	}
	for _, code := range []int{4326, 32632, 5070} {
		var s projection.Service = projection.New()
		if code == 4326 {
			s = svc
		}
		gm, err := CreateGridMapping(s, mustEPSG(t, code), globalTransform, "crs")
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, dataset.EncodeJSON(&buf, &dataset.Dataset{Coords: dataset.Coords{gm}}))
		back, err := dataset.DecodeJSON(&buf)
		require.NoError(t, err)
		got, ok := back.Coords.Get("crs")
		require.True(t, ok)

		assert.Equal(t, gm.Data, got.Data, "EPSG:%d", code)
		assert.Equal(t, gm.Attrs.Keys(), got.Attrs.Keys(), "EPSG:%d", code)
		assert.True(t, reflect.DeepEqual(gm.Attrs.Map(), got.Attrs.Map()), "EPSG:%d\nwrote %#v\nread  %#v", code, gm.Attrs.Map(), got.Attrs.Map())
	}
}

func TestCreateGridMapping_ServiceErrorAborts(t *testing.T) {
	svc := stubService{Default: projection.New(), wktErr: errors.New("no wkt")}
	gm, err := CreateGridMapping(svc, mustEPSG(t, 4326), globalTransform, "crs")
	require.Error(t, err)
	assert.Nil(t, gm)
	assert.Contains(t, err.Error(), "no wkt")

	_, err = CreateGridMapping(projection.New(), crs.CRS{}, globalTransform, "crs")
	assert.True(t, errors.Is(err, crs.ErrInvalid))
}

func TestCreateCoordinates(t *testing.T) {
	svc := projection.New()
	ys, xs := []float64{89.95, 89.85}, []float64{-179.95, -179.85, -179.75}

	yv, xv, err := CreateCoordinates(svc, ys, xs, mustEPSG(t, 4326))
	require.NoError(t, err)
	assert.Equal(t, "latitude", yv.Name)
	assert.Equal(t, []string{"latitude"}, yv.Dims)
	assert.Equal(t, []int{2}, yv.Shape)
	assert.Equal(t, "longitude", xv.Name)
	assert.Equal(t, []int{3}, xv.Shape)
	u, _ := yv.Attrs.String(AttrUnits)
	assert.Equal(t, "degrees_north", u)
	u, _ = xv.Attrs.String(AttrUnits)
	assert.Equal(t, "degrees_east", u)

	yv, xv, err = CreateCoordinates(svc, ys, xs, mustEPSG(t, 32632))
	require.NoError(t, err)
	assert.Equal(t, "y", yv.Name)
	assert.Equal(t, "x", xv.Name)
	sn, _ := xv.Attrs.String(AttrStandardName)
	assert.Equal(t, "projection_x_coordinate", sn)
	u, _ = yv.Attrs.String(AttrUnits)
	assert.Equal(t, "metre", u)
	u, _ = xv.Attrs.String(AttrUnits)
	assert.Equal(t, "metre", u)

	ft, err := crs.ParseProj("+proj=tmerc +datum=WGS84 +units=us-ft")
	require.NoError(t, err)
	yv, _, err = CreateCoordinates(svc, ys, xs, ft)
	require.NoError(t, err)
	u, _ = yv.Attrs.String(AttrUnits)
	assert.Equal(t, "us survey foot", u)

	_, _, err = CreateCoordinates(svc, ys, xs, crs.CRS{})
	assert.Error(t, err)
}

func TestCreateCoordinates_Deterministic(t *testing.T) {
	svc := projection.New()
	for _, code := range []int{4326, 3857, 2056} {
		y1, x1, err := CreateCoordinates(svc, []float64{1}, []float64{2}, mustEPSG(t, code))
		require.NoError(t, err)
		y2, x2, err := CreateCoordinates(svc, []float64{1}, []float64{2}, mustEPSG(t, code))
		require.NoError(t, err)
		assert.Equal(t, y1.Name, y2.Name)
		assert.Equal(t, x1.Name, x2.Name)
		assert.Equal(t, y1.Attrs.Map(), y2.Attrs.Map())
	}
}

func TestCoordDefs(t *testing.T) {
	defs := CoordDefs()
	require.Len(t, defs, 5)
	axis, _ := defs["time"].String(AttrAxis)
	assert.Equal(t, "T", axis)
	cal, _ := defs["time"].String(AttrCalendar)
	assert.Equal(t, "standard", cal)

	lon := defs["longitude"]
	lon.Set(AttrUnits, "radians")
	u, _ := CoordDefs()["longitude"].String(AttrUnits)
	assert.Equal(t, "degrees_east", u)

	conv, _ := CFAttrs().String(AttrConventions)
	assert.Equal(t, "CF-1.7", conv)
}

func newArray() *dataset.DataArray {
	return &dataset.DataArray{
		Variable: dataset.Variable{
			Name:  "temperature",
			Dims:  []string{"latitude", "longitude"},
			Shape: []int{2, 3},
			Data:  []float64{1, 2, 3, 4, 5, 6},
			Attrs: dataset.NewAttrs("units", "K"),
		},
		Coords: dataset.Coords{
			dataset.New1D("latitude", "latitude", []float64{89.95, 89.85}, dataset.Attrs{}),
			dataset.New1D("longitude", "longitude", []float64{-179.95, -179.85, -179.75}, dataset.Attrs{}),
		},
	}
}

func TestGeoreference_DataArrayCopy(t *testing.T) {
	orig := newArray()
	out, err := Georeference(orig, projection.New(), mustEPSG(t, 4326), globalTransform)
	require.NoError(t, err)

	da, ok := out.(*dataset.DataArray)
	require.True(t, ok)
	assert.NotSame(t, orig, da)

	gmName, _ := da.Attrs.String(AttrGridMapping)
	assert.Equal(t, "crs", gmName)
	conv, _ := da.Attrs.String(AttrConventions)
	assert.Equal(t, "CF-1.7", conv)
	gm, err := GetGridMapping(da, "")
	require.NoError(t, err)
	gt, _ := gm.Attrs.String(AttrGeoTransform)
	assert.Equal(t, "-180 0.1 0 90 0 -0.1", gt)
	assert.Equal(t, int32(4326), gm.Data)

	// The input is untouched and the data is shared.
	assert.False(t, orig.Attrs.Has(AttrGridMapping))
	assert.False(t, orig.Attrs.Has(AttrConventions))
	_, err = GetGridMapping(orig, "")
	assert.True(t, errors.Is(err, ErrMissingGridMapping))
	assert.Equal(t, orig.Data, da.Data)

	ok, err = IsGeoreferenced(da, RequireGDAL())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGeoreference_InPlace(t *testing.T) {
	orig := newArray()
	out, err := Georeference(orig, projection.New(), mustEPSG(t, 4326), globalTransform,
		InPlace(), WithGridMapping("spatial"))
	require.NoError(t, err)
	assert.Same(t, orig, out)

	gmName, _ := orig.Attrs.String(AttrGridMapping)
	assert.Equal(t, "spatial", gmName)
	_, err = GetGridMapping(orig, "spatial")
	require.NoError(t, err)

	ok, err := IsGeoreferenced(orig)
	require.NoError(t, err)
	assert.False(t, ok, "default grid mapping name is absent")
	ok, err = IsGeoreferenced(orig, WithGridMapping("spatial"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGeoreference_DatasetPartial(t *testing.T) {
	ds := &dataset.Dataset{
		Coords: dataset.Coords{
			dataset.New1D("y", "y", []float64{5100015, 5099985}, dataset.Attrs{}),
			dataset.New1D("x", "x", []float64{300015, 300045}, dataset.Attrs{}),
		},
		Vars: []*dataset.Variable{
			{Name: "ndvi", Dims: []string{"time", "y", "x"}, Shape: []int{1, 2, 2}, Data: []float64{0, 0, 0, 0}},
			{Name: "station", Dims: []string{"station"}, Shape: []int{2}, Data: []int32{1, 2}},
		},
		Attrs: dataset.NewAttrs("title", "test"),
	}

	var buf bytes.Buffer
	out, err := Georeference(ds, projection.New(), mustEPSG(t, 32632), globalTransform,
		WithLogger(debugLogger(&buf)))
	require.NoError(t, err)
	got := out.(*dataset.Dataset)

	ndvi, _ := got.Var("ndvi")
	gmName, _ := ndvi.Attrs.String(AttrGridMapping)
	assert.Equal(t, "crs", gmName)
	station, _ := got.Var("station")
	assert.False(t, station.Attrs.Has(AttrGridMapping))
	assert.Contains(t, buf.String(), `"variable":"station"`)

	assert.Equal(t, []string{"title", "Conventions"}, got.Attrs.Keys())
	_, ok := got.Coords.Get("crs")
	assert.True(t, ok)

	for _, v := range ds.Vars {
		assert.False(t, v.Attrs.Has(AttrGridMapping), "input variable %s modified", v.Name)
	}

	ok, err = IsGeoreferenced(got)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGeoreference_GeographicDimsOnProjectedData(t *testing.T) {
	// Geographic CRS expects longitude/latitude; x/y variables stay unlinked.
	ds := &dataset.Dataset{
		Vars: []*dataset.Variable{{Name: "v", Dims: []string{"y", "x"}, Shape: []int{1, 1}, Data: []float64{0}}},
	}
	out, err := Georeference(ds, projection.New(), mustEPSG(t, 4326), globalTransform)
	require.NoError(t, err)
	v, _ := out.(*dataset.Dataset).Var("v")
	assert.False(t, v.Attrs.Has(AttrGridMapping))

	ok, err := IsGeoreferenced(out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGeoreference_Unsupported(t *testing.T) {
	svc := projection.New()
	for _, obj := range []any{"x", 42, (*dataset.DataArray)(nil), (*dataset.Dataset)(nil), dataset.Dataset{}} {
		_, err := Georeference(obj, svc, mustEPSG(t, 4326), globalTransform)
		assert.True(t, errors.Is(err, ErrUnsupportedObject), "%T", obj)
	}
	_, err := IsGeoreferenced("x")
	assert.True(t, errors.Is(err, ErrUnsupportedObject))
	_, err = GetGridMapping(3.5, "crs")
	assert.True(t, errors.Is(err, ErrUnsupportedObject))
}

func TestGeoreference_ServiceErrorLeavesInputUntouched(t *testing.T) {
	orig := newArray()
	svc := stubService{Default: projection.New(), wktErr: errors.New("no wkt")}
	_, err := Georeference(orig, svc, mustEPSG(t, 4326), globalTransform, InPlace())
	require.Error(t, err)
	assert.False(t, orig.Attrs.Has(AttrGridMapping))
	assert.Len(t, orig.Coords, 2)
}

func TestIsGeoreferenced(t *testing.T) {
	svc := projection.New()
	georeferenced := func(t *testing.T) *dataset.DataArray {
		out, err := Georeference(newArray(), svc, mustEPSG(t, 4326), globalTransform)
		require.NoError(t, err)
		return out.(*dataset.DataArray)
	}

	tests := []struct {
		name   string
		mutate func(da *dataset.DataArray)
		opts   []Option
		want   bool
		logged string
	}{
		{"complete", func(*dataset.DataArray) {}, nil, true, ""},
		{"complete gdal", func(*dataset.DataArray) {}, []Option{RequireGDAL()}, true, ""},
		{
			"no GeoTransform",
			func(da *dataset.DataArray) {
				gm, _ := da.Coords.Get("crs")
				gm.Attrs.Delete(AttrGeoTransform)
			},
			nil, true, "GeoTransform",
		},
		{
			"no GeoTransform gdal",
			func(da *dataset.DataArray) {
				gm, _ := da.Coords.Get("crs")
				gm.Attrs.Delete(AttrGeoTransform)
			},
			[]Option{RequireGDAL()}, false, "GeoTransform",
		},
		{
			"no grid_mapping_name",
			func(da *dataset.DataArray) {
				gm, _ := da.Coords.Get("crs")
				gm.Attrs.Delete(AttrGridMappingName)
			},
			nil, false, "grid_mapping_name",
		},
		{
			"array not linked",
			func(da *dataset.DataArray) { da.Attrs.Delete(AttrGridMapping) },
			nil, false, `"missing":["grid_mapping"]`,
		},
		{
			"no grid mapping variable",
			func(da *dataset.DataArray) { da.Coords = da.Coords[:2] },
			nil, false, "no grid mapping variable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			da := georeferenced(t)
			tt.mutate(da)
			var buf bytes.Buffer
			got, err := IsGeoreferenced(da, append(tt.opts, WithLogger(debugLogger(&buf)))...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if tt.logged != "" {
				assert.True(t, strings.Contains(buf.String(), tt.logged), "log %q lacks %q", buf.String(), tt.logged)
			}
		})
	}
}

func TestIsGeoreferenced_DatasetNeedsOneLinkedVariable(t *testing.T) {
	gm, err := CreateGridMapping(projection.New(), mustEPSG(t, 4326), globalTransform, "crs")
	require.NoError(t, err)
	ds := &dataset.Dataset{
		Coords: dataset.Coords{gm},
		Vars: []*dataset.Variable{
			{Name: "a", Dims: []string{"latitude", "longitude"}, Shape: []int{1, 1}, Data: []float64{0}},
			{Name: "b", Dims: []string{"latitude", "longitude"}, Shape: []int{1, 1}, Data: []float64{0}},
		},
	}
	ok, err := IsGeoreferenced(ds)
	require.NoError(t, err)
	assert.False(t, ok)

	ds.Vars[1].Attrs.Set(AttrGridMapping, "crs")
	ok, err = IsGeoreferenced(ds)
	require.NoError(t, err)
	assert.True(t, ok)
}
