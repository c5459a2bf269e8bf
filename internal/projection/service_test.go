package projection

import (
	"math"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pspoerri/cfgeo/internal/bounds"
	"github.com/pspoerri/cfgeo/internal/crs"
)

func mustEPSG(t *testing.T, code int) crs.CRS {
	t.Helper()
	c, ok := crs.FromEPSG(code)
	require.True(t, ok, "FromEPSG(%d)", code)
	return c
}

func TestGridMappingName(t *testing.T) {
	svc := New()
	tests := []struct {
		code int
		want string
	}{
		{4326, "latitude_longitude"},
		{32632, "transverse_mercator"},
		{3857, "mercator"},
		{3035, "lambert_azimuthal_equal_area"},
		{5070, "albers_conical_equal_area"},
		{2056, "oblique_mercator"},
	}
	for _, tt := range tests {
		got, err := svc.GridMappingName(mustEPSG(t, tt.code))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "EPSG:%d", tt.code)
	}
}

func TestAuthorityCode(t *testing.T) {
	svc := New()

	code, ok, err := svc.AuthorityCode(mustEPSG(t, 4326))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "EPSG:4326", code)

	utm, err := crs.ParseProj("+proj=utm +zone=33 +south +datum=WGS84")
	require.NoError(t, err)
	code, ok, err = svc.AuthorityCode(utm)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "EPSG:32733", code)

	custom, err := crs.ParseProj("+proj=tmerc +lon_0=11 +ellps=intl")
	require.NoError(t, err)
	_, ok, err = svc.AuthorityCode(custom)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestZeroCRS(t *testing.T) {
	svc := New()
	_, err := svc.GridMappingName(crs.CRS{})
	assert.True(t, errors.Is(err, crs.ErrInvalid))
	_, _, err = svc.AuthorityCode(crs.CRS{})
	assert.True(t, errors.Is(err, crs.ErrInvalid))
	_, err = svc.IsProjected(crs.CRS{})
	assert.True(t, errors.Is(err, crs.ErrInvalid))
	_, _, err = svc.AxisNames(crs.CRS{})
	assert.True(t, errors.Is(err, crs.ErrInvalid))
	assert.True(t, errors.Is(svc.Validate(crs.CRS{}), crs.ErrInvalid))
}

func TestCFProjectionParams(t *testing.T) {
	svc := New()

	geo, err := svc.CFProjectionParams(mustEPSG(t, 4326))
	require.NoError(t, err)
	assert.Equal(t, 0, geo.Len())

	utm, err := svc.CFProjectionParams(mustEPSG(t, 32632))
	require.NoError(t, err)
	want := map[string]any{
		"latitude_of_projection_origin":    0.0,
		"longitude_of_central_meridian":    9.0,
		"scale_factor_at_central_meridian": 0.9996,
		"false_easting":                    500000.0,
		"false_northing":                   0.0,
	}
	if diff := cmp.Diff(want, utm.Map()); diff != "" {
		t.Errorf("UTM params mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{
		"latitude_of_projection_origin",
		"longitude_of_central_meridian",
		"scale_factor_at_central_meridian",
		"false_easting",
		"false_northing",
	}, utm.Keys())
}

func TestCFProjectionParams_StandardParallels(t *testing.T) {
	svc := New()
	attrs, err := svc.CFProjectionParams(mustEPSG(t, 5070))
	require.NoError(t, err)
	sp, ok := attrs.Get("standard_parallel")
	require.True(t, ok)
	assert.Equal(t, []float64{29.5, 45.5}, sp)
	assert.Equal(t, "standard_parallel", attrs.Keys()[0])

	merc, err := crs.ParseProj("+proj=merc +lat_ts=33 +datum=WGS84")
	require.NoError(t, err)
	attrs, err = svc.CFProjectionParams(merc)
	require.NoError(t, err)
	sp, _ = attrs.Get("standard_parallel")
	assert.Equal(t, 33.0, sp)
}

func TestCFEllipsoidParams(t *testing.T) {
	svc := New()
	attrs, err := svc.CFEllipsoidParams(mustEPSG(t, 4326))
	require.NoError(t, err)

	get := func(k string) any {
		v, ok := attrs.Get(k)
		require.True(t, ok, k)
		return v
	}
	assert.Equal(t, 6378137.0, get("semi_major_axis"))
	assert.Equal(t, 298.257223563, get("inverse_flattening"))
	assert.InDelta(t, 6356752.314245, get("semi_minor_axis"), 1e-6)
	assert.Equal(t, 0.0, get("longitude_of_prime_meridian"))
	assert.Equal(t, "Greenwich", get("prime_meridian_name"))
	assert.Equal(t, "WGS 84", get("geographic_crs_name"))
	assert.Equal(t, "WGS_1984", get("horizontal_datum_name"))
	assert.Equal(t, "semi_major_axis", attrs.Keys()[0])
}

func TestLinearUnitAndAxes(t *testing.T) {
	svc := New()
	tests := []struct {
		code      int
		projected bool
		unit      string
		x, y      string
	}{
		{4326, false, "degree", "longitude", "latitude"},
		{32632, true, "metre", "x", "y"},
		{2056, true, "metre", "x", "y"},
	}
	for _, tt := range tests {
		c := mustEPSG(t, tt.code)
		projected, err := svc.IsProjected(c)
		require.NoError(t, err)
		assert.Equal(t, tt.projected, projected)

		unit, err := svc.LinearUnitName(c)
		require.NoError(t, err)
		assert.Equal(t, tt.unit, unit)

		x, y, err := svc.AxisNames(c)
		require.NoError(t, err)
		assert.Equal(t, tt.x, x)
		assert.Equal(t, tt.y, y)
	}

	ft, err := crs.ParseProj("+proj=tmerc +datum=WGS84 +units=us-ft")
	require.NoError(t, err)
	unit, err := svc.LinearUnitName(ft)
	require.NoError(t, err)
	assert.Equal(t, "US survey foot", unit)
}

func TestWellKnownText_AddsAuthority(t *testing.T) {
	svc := New()
	untagged := crs.NewGeographic("", crs.DatumWGS84, 0)
	wkt, err := svc.WellKnownText(untagged)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(wkt, `AUTHORITY["EPSG","4326"]]`), wkt)

	back, err := crs.ParseWKT(wkt)
	require.NoError(t, err)
	assert.True(t, back.Equal(untagged))

	custom, err := crs.ParseProj("+proj=tmerc +lon_0=11 +ellps=intl")
	require.NoError(t, err)
	wkt, err = svc.WellKnownText(custom)
	require.NoError(t, err)
	assert.NotContains(t, wkt, "AUTHORITY")
}

func TestFromAuthority(t *testing.T) {
	svc := New()
	for _, code := range []int{4326, 4269, 4258, 3857, 3035, 5070, 2056, 32632, 32760} {
		c, err := svc.FromAuthority(code)
		require.NoError(t, err, "EPSG:%d", code)
		assert.Equal(t, code, c.Authority().Code)
	}

	_, err := svc.FromAuthority(27700)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownAuthority))
	assert.Contains(t, err.Error(), "EPSG:27700")
}

func TestFromParams(t *testing.T) {
	svc := New()
	c, err := svc.FromParams(crs.Params{"proj": "utm", "zone": "32", "datum": "WGS84"})
	require.NoError(t, err)
	assert.True(t, c.Equal(mustEPSG(t, 32632)))

	_, err = svc.FromParams(crs.Params{"proj": "tmerc", "lat_0": "91", "datum": "WGS84"})
	assert.True(t, errors.Is(err, crs.ErrInvalid))

	_, err = svc.FromParams(crs.Params{"ellps": "WGS84"})
	assert.True(t, errors.Is(err, crs.ErrSyntax))
}

func TestToLonLat_SwissReferencePoints(t *testing.T) {
	svc := New()
	ll, err := svc.ToLonLat(mustEPSG(t, 2056))
	require.NoError(t, err)

	// swisstopo reference points; the polynomial is good to ~100 m at the edges.
	points := []struct {
		name              string
		easting, northing float64
		lon, lat          float64
		tol               float64
	}{
		{"Bern", 2_600_000, 1_200_000, 7.438632, 46.951083, 0.001},
		{"Zurich", 2_683_474, 1_247_862, 8.5417, 47.3769, 0.005},
		{"Geneva", 2_500_560, 1_118_017, 6.1432, 46.2075, 0.01},
	}
	for _, p := range points {
		t.Run(p.name, func(t *testing.T) {
			lon, lat, err := ll.ToWGS84(p.easting, p.northing)
			require.NoError(t, err)
			assert.InDelta(t, p.lon, lon, p.tol)
			assert.InDelta(t, p.lat, lat, p.tol)

			e, n, err := ll.FromWGS84(lon, lat)
			require.NoError(t, err)
			assert.InDelta(t, p.easting, e, 5)
			assert.InDelta(t, p.northing, n, 5)
		})
	}
}

func TestToLonLat_WebMercator(t *testing.T) {
	svc := New()
	ll, err := svc.ToLonLat(mustEPSG(t, 3857))
	require.NoError(t, err)

	lon, lat, err := ll.ToWGS84(originShift, 0)
	require.NoError(t, err)
	assert.InDelta(t, 180, lon, 1e-9)
	assert.InDelta(t, 0, lat, 1e-9)

	for _, p := range [][2]float64{{8.5417, 47.3769}, {-74.006, 40.7128}, {139.6917, -35.6895}} {
		x, y, err := ll.FromWGS84(p[0], p[1])
		require.NoError(t, err)
		lon, lat, err := ll.ToWGS84(x, y)
		require.NoError(t, err)
		assert.InDelta(t, p[0], lon, 1e-9)
		assert.InDelta(t, p[1], lat, 1e-9)
	}
}

func TestToLonLat_UTM(t *testing.T) {
	svc := New()
	ll, err := svc.ToLonLat(mustEPSG(t, 32632))
	require.NoError(t, err)
	lon, lat, err := ll.ToWGS84(500000, 0)
	require.NoError(t, err)
	assert.InDelta(t, 9, lon, 1e-6)
	assert.InDelta(t, 0, lat, 1e-6)
}

func TestToLonLat_Unsupported(t *testing.T) {
	svc := New()
	_, err := svc.ToLonLat(mustEPSG(t, 3035))
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "EPSG:2056")
}

func TestLonLatBounds(t *testing.T) {
	svc := New()

	geo := bounds.Bounds{MinX: -10, MinY: 35, MaxX: 30, MaxY: 60}
	got, err := svc.LonLatBounds(mustEPSG(t, 4326), geo)
	require.NoError(t, err)
	assert.Equal(t, geo, got)

	world, err := svc.LonLatBounds(mustEPSG(t, 3857), bounds.Bounds{
		MinX: -originShift, MinY: -originShift, MaxX: originShift, MaxY: originShift,
	})
	require.NoError(t, err)
	assert.InDelta(t, -180, world.MinX, 1e-9)
	assert.InDelta(t, 180, world.MaxX, 1e-9)
	assert.InDelta(t, 85.0511, world.MaxY, 1e-4)
	assert.InDelta(t, -85.0511, world.MinY, 1e-4)
	assert.False(t, math.IsInf(world.MinX, 0))
}
